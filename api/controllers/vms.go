package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/virtucloud/virtucloud-backend/api/responses"
	"github.com/virtucloud/virtucloud-backend/api/validators"
	"github.com/virtucloud/virtucloud-backend/internal/vms"
	"github.com/virtucloud/virtucloud-backend/pkg/db/models"
	pkgerrors "github.com/virtucloud/virtucloud-backend/pkg/errors"
	"github.com/virtucloud/virtucloud-backend/pkg/logger"
)

// VMCreate provisions a machine for the caller.
func VMCreate(svc *vms.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "vms service unavailable"))
			return
		}

		userID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body vms.CreateVMRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		vm, err := svc.Create(r.Context(), userID, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, vms.FromModel(vm))
	}
}

// VMList returns the caller's machines.
func VMList(svc *vms.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "vms service unavailable"))
			return
		}

		userID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.List(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, vms.FromModels(list))
	}
}

// VMGet returns one of the caller's machines.
func VMGet(svc *vms.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "vms service unavailable"))
			return
		}

		userID, vmID, err := vmRequestIDs(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		vm, err := svc.Get(r.Context(), userID, vmID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, vms.FromModel(vm))
	}
}

// VMUpdate changes attributes of one of the caller's machines.
func VMUpdate(svc *vms.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "vms service unavailable"))
			return
		}

		userID, vmID, err := vmRequestIDs(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body vms.UpdateVMRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		vm, err := svc.Update(r.Context(), userID, vmID, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, vms.FromModel(vm))
	}
}

// VMDelete removes one of the caller's machines.
func VMDelete(svc *vms.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "vms service unavailable"))
			return
		}

		userID, vmID, err := vmRequestIDs(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Delete(r.Context(), userID, vmID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}

// VMStart boots one of the caller's machines.
func VMStart(svc *vms.Service, logg *logger.Logger) http.HandlerFunc {
	return vmAction(svc, logg, func(r *http.Request, userID, vmID uuid.UUID) (*models.VM, error) {
		return svc.Start(r.Context(), userID, vmID)
	})
}

// VMStop halts one of the caller's machines.
func VMStop(svc *vms.Service, logg *logger.Logger) http.HandlerFunc {
	return vmAction(svc, logg, func(r *http.Request, userID, vmID uuid.UUID) (*models.VM, error) {
		return svc.Stop(r.Context(), userID, vmID)
	})
}

// VMBackup records a backup of one of the caller's machines.
func VMBackup(svc *vms.Service, logg *logger.Logger) http.HandlerFunc {
	return vmAction(svc, logg, func(r *http.Request, userID, vmID uuid.UUID) (*models.VM, error) {
		return svc.Backup(r.Context(), userID, vmID)
	})
}

// VMMove relocates one of the caller's stopped machines.
func VMMove(svc *vms.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "vms service unavailable"))
			return
		}

		userID, vmID, err := vmRequestIDs(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body vms.MoveVMRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		vm, err := svc.Move(r.Context(), userID, vmID, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, vms.FromModel(vm))
	}
}

func vmAction(svc *vms.Service, logg *logger.Logger, fn func(r *http.Request, userID, vmID uuid.UUID) (*models.VM, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "vms service unavailable"))
			return
		}

		userID, vmID, err := vmRequestIDs(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		vm, err := fn(r, userID, vmID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, vms.FromModel(vm))
	}
}

func vmRequestIDs(r *http.Request) (uuid.UUID, uuid.UUID, error) {
	userID, err := currentUserID(r)
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	vmID, err := pathUUID(r, "vmID")
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	return userID, vmID, nil
}
