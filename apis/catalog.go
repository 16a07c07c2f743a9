// Copyright 2021-2022 The httpmq Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package apis

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/alwitt/goutils"
	"github.com/apex/log"
	"github.com/colabnet/docwatch/catalog"
	"github.com/colabnet/docwatch/common"
	"github.com/colabnet/docwatch/storage"
	"github.com/gorilla/mux"
)

// APIRestCatalogHandler REST handler for the entity catalog
type APIRestCatalogHandler struct {
	goutils.RestAPIHandler
	catalog   *catalog.Catalog
	store     storage.DocumentStore
	opTimeout time.Duration
}

// GetAPIRestCatalogHandler define APIRestCatalogHandler
func GetAPIRestCatalogHandler(
	entities *catalog.Catalog,
	store storage.DocumentStore,
	httpConfig *common.HTTPConfig,
	opTimeout time.Duration,
) (APIRestCatalogHandler, error) {
	if entities == nil || store == nil {
		return APIRestCatalogHandler{}, fmt.Errorf("catalog handler requires a catalog and a store")
	}
	logTags := log.Fields{
		"module":    "rest",
		"component": "catalog",
	}
	return APIRestCatalogHandler{
		RestAPIHandler: defineRestAPIHandler(logTags, httpConfig),
		catalog:        entities,
		store:          store,
		opTimeout:      opTimeout,
	}, nil
}

// Write logging support
func (h APIRestCatalogHandler) Write(p []byte) (n int, err error) {
	log.WithFields(h.LogTags).Infof("%s", p)
	return len(p), nil
}

// RegisterCatalogRoutes install the catalog and health check routes under the parent router
func RegisterCatalogRoutes(parent *mux.Router, h APIRestCatalogHandler) {
	v1 := RegisterPathPrefix(parent, "/v1", nil)

	// Collaborators
	_ = RegisterPathPrefix(v1, "/colaboradores", MethodHandlers{
		"get": h.ListColaboradoresHandler(),
	})
	_ = RegisterPathPrefix(v1, "/colaborador/{numero_empleado}", MethodHandlers{
		"get": h.GetColaboradorHandler(),
	})
	_ = RegisterPathPrefix(v1, "/nuevo-colaborador", MethodHandlers{
		"post": h.CreateColaboradorHandler(),
	})
	_ = RegisterPathPrefix(v1, "/actualizar-colaborador/{numero_empleado}", MethodHandlers{
		"put": h.UpdateColaboradorHandler(),
	})
	_ = RegisterPathPrefix(v1, "/eliminar-colaborador/{numero_empleado}", MethodHandlers{
		"delete": h.DeleteColaboradorHandler(),
	})

	// Micro-entrepreneurs
	_ = RegisterPathPrefix(v1, "/microempresarios", MethodHandlers{
		"get": h.ListMicroempresariosHandler(),
	})
	_ = RegisterPathPrefix(v1, "/microempresario/{id_microempresario}", MethodHandlers{
		"get": h.GetMicroempresarioHandler(),
	})
	_ = RegisterPathPrefix(v1, "/nuevo-microempresario", MethodHandlers{
		"post": h.CreateMicroempresarioHandler(),
	})
	_ = RegisterPathPrefix(v1, "/actualizar-microempresario/{id_microempresario}", MethodHandlers{
		"put": h.UpdateMicroempresarioHandler(),
	})
	_ = RegisterPathPrefix(v1, "/eliminar-microempresario/{id_microempresario}", MethodHandlers{
		"delete": h.DeleteMicroempresarioHandler(),
	})

	// Incentives
	_ = RegisterPathPrefix(v1, "/incentivos", MethodHandlers{
		"get": h.ListIncentivosHandler(),
	})
	_ = RegisterPathPrefix(v1, "/incentivo/{id_incentivo}", MethodHandlers{
		"get": h.GetIncentivoHandler(),
	})
	_ = RegisterPathPrefix(v1, "/nuevo-incentivo", MethodHandlers{
		"post": h.CreateIncentivoHandler(),
	})

	// Referrals
	_ = RegisterPathPrefix(v1, "/referencias", MethodHandlers{
		"get": h.ListReferenciasHandler(),
	})
	_ = RegisterPathPrefix(v1, "/referencia/{id_referencia}", MethodHandlers{
		"get": h.GetReferenciaHandler(),
	})
	_ = RegisterPathPrefix(v1, "/nueva-referencia", MethodHandlers{
		"post": h.CreateReferenciaHandler(),
	})
	_ = RegisterPathPrefix(v1, "/actualizar-referencia/{id_referencia}", MethodHandlers{
		"put": h.UpdateReferenciaHandler(),
	})
	_ = RegisterPathPrefix(v1, "/eliminar-referencia/{id_referencia}", MethodHandlers{
		"delete": h.DeleteReferenciaHandler(),
	})

	// Routes
	_ = RegisterPathPrefix(v1, "/rutas-por-zona/{id_zona}", MethodHandlers{
		"get": h.ListRutasByZonaHandler(),
	})
	_ = RegisterPathPrefix(v1, "/rutas", MethodHandlers{
		"get": h.ListRutasHandler(),
	})
	_ = RegisterPathPrefix(v1, "/ruta/{id_ruta}", MethodHandlers{
		"get": h.GetRutaHandler(),
	})
	_ = RegisterPathPrefix(v1, "/nueva-ruta", MethodHandlers{
		"post": h.CreateRutaHandler(),
	})
	_ = RegisterPathPrefix(v1, "/actualizar-ruta/{id_ruta}", MethodHandlers{
		"put": h.UpdateRutaHandler(),
	})
	_ = RegisterPathPrefix(v1, "/eliminar-ruta/{id_ruta}", MethodHandlers{
		"delete": h.DeleteRutaHandler(),
	})

	// Zones
	_ = RegisterPathPrefix(v1, "/zonas", MethodHandlers{
		"get": h.ListZonasHandler(),
	})
	_ = RegisterPathPrefix(v1, "/zona/{id_zona}", MethodHandlers{
		"get": h.GetZonaHandler(),
	})
	_ = RegisterPathPrefix(v1, "/nueva-zona", MethodHandlers{
		"post": h.CreateZonaHandler(),
	})
	_ = RegisterPathPrefix(v1, "/actualizar-zona/{id_zona}", MethodHandlers{
		"put": h.UpdateZonaHandler(),
	})
	_ = RegisterPathPrefix(v1, "/eliminar-zona/{id_zona}", MethodHandlers{
		"delete": h.DeleteZonaHandler(),
	})

	// Administrators
	_ = RegisterPathPrefix(v1, "/administradores", MethodHandlers{
		"get": h.ListAdministradoresHandler(),
	})
	_ = RegisterPathPrefix(v1, "/administrador/{id_admin}", MethodHandlers{
		"get": h.GetAdministradorHandler(),
	})
	_ = RegisterPathPrefix(v1, "/nuevo-administrador", MethodHandlers{
		"post": h.CreateAdministradorHandler(),
	})
	_ = RegisterPathPrefix(v1, "/actualizar-administrador/{id_admin}", MethodHandlers{
		"put": h.UpdateAdministradorHandler(),
	})
	_ = RegisterPathPrefix(v1, "/eliminar-administrador/{id_admin}", MethodHandlers{
		"delete": h.DeleteAdministradorHandler(),
	})

	// Health check
	_ = RegisterPathPrefix(v1, "/alive", MethodHandlers{
		"get": h.AliveHandler(),
	})
	_ = RegisterPathPrefix(v1, "/ready", MethodHandlers{
		"get": h.ReadyHandler(),
	})
}

// =======================================================================
// Common entity operations

// APIRestRespEntities response for listing entities
type APIRestRespEntities struct {
	goutils.RestAPIBaseResponse
	// Entities the entities, each with its store document "id"
	Entities []catalog.Record `json:"entities"`
}

// APIRestRespEntity response for reading one entity
type APIRestRespEntity struct {
	goutils.RestAPIBaseResponse
	// Entity the entity with its store document "id"
	Entity catalog.Record `json:"entity"`
}

// APIRestRespEntityKey response for entity changes
type APIRestRespEntityKey struct {
	goutils.RestAPIBaseResponse
	// Collection the collection holding the entity
	Collection string `json:"collection"`
	// Key the business key of the entity
	Key string `json:"key"`
}

// listEntities reply with every entity returned by list
func (h APIRestCatalogHandler) listEntities(
	w http.ResponseWriter,
	r *http.Request,
	what string,
	list func(ctxt context.Context) ([]catalog.Record, error),
) {
	localLogTags := h.GetLogTagsForContext(r.Context())
	var respCode int
	var respBody interface{}
	defer func() {
		if err := h.WriteRESTResponse(w, respCode, respBody, nil); err != nil {
			log.WithError(err).WithFields(localLogTags).Error("Failed to form response")
		}
	}()

	ctxt, cancel := boundContext(r.Context(), h.opTimeout)
	defer cancel()
	entities, err := list(ctxt)
	if err != nil {
		msg := fmt.Sprintf("Unable to list %s", what)
		log.WithError(err).WithFields(localLogTags).Error(msg)
		respCode = errorStatus(err)
		respBody = h.GetStdRESTErrorMsg(r.Context(), respCode, msg, err.Error())
		return
	}

	respCode = http.StatusOK
	respBody = APIRestRespEntities{
		RestAPIBaseResponse: goutils.RestAPIBaseResponse{
			Success: true, RequestID: h.ReadRequestIDFromContext(r.Context()),
		},
		Entities: entities,
	}
}

// getEntity reply with the entity whose business key is in path variable keyVar
func (h APIRestCatalogHandler) getEntity(
	w http.ResponseWriter,
	r *http.Request,
	what, keyVar string,
	get func(ctxt context.Context, key string) (catalog.Record, error),
) {
	localLogTags := h.GetLogTagsForContext(r.Context())
	var respCode int
	var respBody interface{}
	defer func() {
		if err := h.WriteRESTResponse(w, respCode, respBody, nil); err != nil {
			log.WithError(err).WithFields(localLogTags).Error("Failed to form response")
		}
	}()

	key, err := readPathVar(r, keyVar)
	if err != nil {
		msg := fmt.Sprintf("No %s provided", keyVar)
		log.WithError(err).WithFields(localLogTags).Error(msg)
		respCode = http.StatusBadRequest
		respBody = h.GetStdRESTErrorMsg(r.Context(), http.StatusBadRequest, msg, err.Error())
		return
	}

	ctxt, cancel := boundContext(r.Context(), h.opTimeout)
	defer cancel()
	entity, err := get(ctxt, key)
	if err != nil {
		msg := fmt.Sprintf("Unable to read %s %s", what, key)
		log.WithError(err).WithFields(localLogTags).Error(msg)
		respCode = errorStatus(err)
		respBody = h.GetStdRESTErrorMsg(r.Context(), respCode, msg, err.Error())
		return
	}

	respCode = http.StatusOK
	respBody = APIRestRespEntity{
		RestAPIBaseResponse: goutils.RestAPIBaseResponse{
			Success: true, RequestID: h.ReadRequestIDFromContext(r.Context()),
		},
		Entity: entity,
	}
}

// entityChange one create / update / delete call
type entityChange struct {
	// action describes the change in error messages
	action string
	// collection holding the entity
	collection string
	// keyVar path variable holding the business key. Empty for creation.
	keyVar string
	// body receives the decoded request body. Nil when the call takes no body.
	body interface{}
	// successCode HTTP status on success
	successCode int
	// apply perform the change, returning the business key of the entity afterwards
	apply func(ctxt context.Context, key string) (string, error)
}

// changeEntity perform one entity change and reply with the resulting business key
func (h APIRestCatalogHandler) changeEntity(
	w http.ResponseWriter, r *http.Request, change entityChange,
) {
	localLogTags := h.GetLogTagsForContext(r.Context())
	var respCode int
	var respBody interface{}
	defer func() {
		if err := h.WriteRESTResponse(w, respCode, respBody, nil); err != nil {
			log.WithError(err).WithFields(localLogTags).Error("Failed to form response")
		}
	}()

	var key string
	if change.keyVar != "" {
		var err error
		if key, err = readPathVar(r, change.keyVar); err != nil {
			msg := fmt.Sprintf("No %s provided", change.keyVar)
			log.WithError(err).WithFields(localLogTags).Error(msg)
			respCode = http.StatusBadRequest
			respBody = h.GetStdRESTErrorMsg(r.Context(), http.StatusBadRequest, msg, err.Error())
			return
		}
	}

	if change.body != nil {
		if err := decodeBody(r, change.body); err != nil {
			msg := "Unable to parse request body"
			log.WithError(err).WithFields(localLogTags).Error(msg)
			respCode = http.StatusBadRequest
			respBody = h.GetStdRESTErrorMsg(r.Context(), http.StatusBadRequest, msg, err.Error())
			return
		}
	}

	ctxt, cancel := boundContext(r.Context(), h.opTimeout)
	defer cancel()
	resultKey, err := change.apply(ctxt, key)
	if err != nil {
		msg := fmt.Sprintf("Failed to %s", change.action)
		log.WithError(err).WithFields(localLogTags).Error(msg)
		respCode = errorStatus(err)
		respBody = h.GetStdRESTErrorMsg(r.Context(), respCode, msg, err.Error())
		return
	}

	respCode = change.successCode
	respBody = APIRestRespEntityKey{
		RestAPIBaseResponse: goutils.RestAPIBaseResponse{
			Success: true, RequestID: h.ReadRequestIDFromContext(r.Context()),
		},
		Collection: change.collection,
		Key:        resultKey,
	}
}

// keepKey adapt an operation which leaves the business key unchanged
func keepKey(op func(ctxt context.Context, key string) error) func(context.Context, string) (string, error) {
	return func(ctxt context.Context, key string) (string, error) {
		return key, op(ctxt, key)
	}
}

// =======================================================================
// Health Checks

// -----------------------------------------------------------------------

// Alive godoc
// @Summary For REST API liveness check
// @Description Will return success to indicate REST API module is live
// @tags Health
// @Produce json
// @Success 200 {object} goutils.RestAPIBaseResponse "success"
// @Failure 400 {string} string "error"
// @Failure 404 {string} string "error"
// @Failure 500 {object} goutils.RestAPIBaseResponse "error"
// @Router /v1/alive [get]
func (h APIRestCatalogHandler) Alive(w http.ResponseWriter, r *http.Request) {
	localLogTags := h.GetLogTagsForContext(r.Context())
	if err := h.WriteRESTResponse(
		w, http.StatusOK, h.GetStdRESTSuccessMsg(r.Context()), nil,
	); err != nil {
		log.WithError(err).WithFields(localLogTags).Error("Failed to form response")
	}
}

// AliveHandler Wrapper around Alive
func (h APIRestCatalogHandler) AliveHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.Alive(w, r)
	}
}

// -----------------------------------------------------------------------

// Ready godoc
// @Summary For REST API readiness check
// @Description Will return success if the document store is reachable
// @tags Health
// @Produce json
// @Success 200 {object} goutils.RestAPIBaseResponse "success"
// @Failure 400 {string} string "error"
// @Failure 404 {string} string "error"
// @Failure 500 {object} goutils.RestAPIBaseResponse "error"
// @Router /v1/ready [get]
func (h APIRestCatalogHandler) Ready(w http.ResponseWriter, r *http.Request) {
	msg := "not ready"
	localLogTags := h.GetLogTagsForContext(r.Context())
	var respCode int
	var respBody interface{}
	defer func() {
		if err := h.WriteRESTResponse(w, respCode, respBody, nil); err != nil {
			log.WithError(err).WithFields(localLogTags).Error("Failed to form response")
		}
	}()

	ctxt, cancel := boundContext(r.Context(), h.opTimeout)
	defer cancel()
	if err := h.store.Ready(ctxt); err != nil {
		log.WithError(err).WithFields(localLogTags).Error("Document store not ready")
		respCode = http.StatusInternalServerError
		respBody = h.GetStdRESTErrorMsg(r.Context(), http.StatusInternalServerError, msg, err.Error())
		return
	}
	respCode = http.StatusOK
	respBody = h.GetStdRESTSuccessMsg(r.Context())
}

// ReadyHandler Wrapper around Ready
func (h APIRestCatalogHandler) ReadyHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.Ready(w, r)
	}
}
