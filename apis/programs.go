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
	"net/http"

	"github.com/colabnet/docwatch/catalog"
)

// =======================================================================
// Incentives

// ListIncentivos godoc
// @Summary List incentives
// @Description List every defined incentive
// @tags Incentivos
// @Produce json
// @Param Docwatch-Request-ID header string false "User provided request ID to match against logs"
// @Success 200 {object} APIRestRespEntities "success"
// @Failure 500 {object} goutils.RestAPIBaseResponse "error"
// @Header 200,500 {string} Docwatch-Request-ID "Request ID to match against logs"
// @Router /v1/incentivos [get]
func (h APIRestCatalogHandler) ListIncentivos(w http.ResponseWriter, r *http.Request) {
	h.listEntities(w, r, catalog.CollectionIncentivos, h.catalog.Incentivos.List)
}

// ListIncentivosHandler Wrapper around ListIncentivos
func (h APIRestCatalogHandler) ListIncentivosHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.ListIncentivos(w, r)
	}
}

// GetIncentivo godoc
// @Summary Fetch one incentive
// @Description Fetch an incentive by ID
// @tags Incentivos
// @Produce json
// @Param Docwatch-Request-ID header string false "User provided request ID to match against logs"
// @Param id_incentivo path string true "Incentive ID"
// @Success 200 {object} APIRestRespEntity "success"
// @Failure 400 {object} goutils.RestAPIBaseResponse "error"
// @Failure 404 {object} goutils.RestAPIBaseResponse "error"
// @Failure 500 {object} goutils.RestAPIBaseResponse "error"
// @Header 200,400,404,500 {string} Docwatch-Request-ID "Request ID to match against logs"
// @Router /v1/incentivo/{id_incentivo} [get]
func (h APIRestCatalogHandler) GetIncentivo(w http.ResponseWriter, r *http.Request) {
	h.getEntity(w, r, "incentivo", "id_incentivo", h.catalog.Incentivos.Get)
}

// GetIncentivoHandler Wrapper around GetIncentivo
func (h APIRestCatalogHandler) GetIncentivoHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.GetIncentivo(w, r)
	}
}

// CreateIncentivo godoc
// @Summary Define an incentive
// @Description Define a new incentive. The response key is the generated ID.
// @tags Incentivos
// @Accept json
// @Produce json
// @Param Docwatch-Request-ID header string false "User provided request ID to match against logs"
// @Param incentivo body catalog.NewIncentivo true "Incentive"
// @Success 201 {object} APIRestRespEntityKey "success"
// @Failure 400 {object} goutils.RestAPIBaseResponse "error"
// @Failure 500 {object} goutils.RestAPIBaseResponse "error"
// @Header 201,400,500 {string} Docwatch-Request-ID "Request ID to match against logs"
// @Router /v1/nuevo-incentivo [post]
func (h APIRestCatalogHandler) CreateIncentivo(w http.ResponseWriter, r *http.Request) {
	var request catalog.NewIncentivo
	h.changeEntity(w, r, entityChange{
		action:      "create incentivo",
		collection:  catalog.CollectionIncentivos,
		body:        &request,
		successCode: http.StatusCreated,
		apply: func(ctxt context.Context, _ string) (string, error) {
			return h.catalog.Incentivos.Create(ctxt, request)
		},
	})
}

// CreateIncentivoHandler Wrapper around CreateIncentivo
func (h APIRestCatalogHandler) CreateIncentivoHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.CreateIncentivo(w, r)
	}
}

// =======================================================================
// Referrals

// ListReferencias godoc
// @Summary List referrals
// @Description List every referral
// @tags Referencias
// @Produce json
// @Param Docwatch-Request-ID header string false "User provided request ID to match against logs"
// @Success 200 {object} APIRestRespEntities "success"
// @Failure 500 {object} goutils.RestAPIBaseResponse "error"
// @Header 200,500 {string} Docwatch-Request-ID "Request ID to match against logs"
// @Router /v1/referencias [get]
func (h APIRestCatalogHandler) ListReferencias(w http.ResponseWriter, r *http.Request) {
	h.listEntities(w, r, catalog.CollectionReferencias, h.catalog.Referencias.List)
}

// ListReferenciasHandler Wrapper around ListReferencias
func (h APIRestCatalogHandler) ListReferenciasHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.ListReferencias(w, r)
	}
}

// GetReferencia godoc
// @Summary Fetch one referral
// @Description Fetch a referral by ID
// @tags Referencias
// @Produce json
// @Param Docwatch-Request-ID header string false "User provided request ID to match against logs"
// @Param id_referencia path string true "Referral ID"
// @Success 200 {object} APIRestRespEntity "success"
// @Failure 400 {object} goutils.RestAPIBaseResponse "error"
// @Failure 404 {object} goutils.RestAPIBaseResponse "error"
// @Failure 500 {object} goutils.RestAPIBaseResponse "error"
// @Header 200,400,404,500 {string} Docwatch-Request-ID "Request ID to match against logs"
// @Router /v1/referencia/{id_referencia} [get]
func (h APIRestCatalogHandler) GetReferencia(w http.ResponseWriter, r *http.Request) {
	h.getEntity(w, r, "referencia", "id_referencia", h.catalog.Referencias.Get)
}

// GetReferenciaHandler Wrapper around GetReferencia
func (h APIRestCatalogHandler) GetReferenciaHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.GetReferencia(w, r)
	}
}

// CreateReferencia godoc
// @Summary Record a referral
// @Description Record a pending referral of a micro-entrepreneur by a collaborator
// @tags Referencias
// @Accept json
// @Produce json
// @Param Docwatch-Request-ID header string false "User provided request ID to match against logs"
// @Param referencia body catalog.NewReferencia true "Referral"
// @Success 201 {object} APIRestRespEntityKey "success"
// @Failure 400 {object} goutils.RestAPIBaseResponse "error"
// @Failure 500 {object} goutils.RestAPIBaseResponse "error"
// @Header 201,400,500 {string} Docwatch-Request-ID "Request ID to match against logs"
// @Router /v1/nueva-referencia [post]
func (h APIRestCatalogHandler) CreateReferencia(w http.ResponseWriter, r *http.Request) {
	var request catalog.NewReferencia
	h.changeEntity(w, r, entityChange{
		action:      "create referencia",
		collection:  catalog.CollectionReferencias,
		body:        &request,
		successCode: http.StatusCreated,
		apply: func(ctxt context.Context, _ string) (string, error) {
			return h.catalog.Referencias.Create(ctxt, request)
		},
	})
}

// CreateReferenciaHandler Wrapper around CreateReferencia
func (h APIRestCatalogHandler) CreateReferenciaHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.CreateReferencia(w, r)
	}
}

// UpdateReferencia godoc
// @Summary Change the state of a referral
// @Description Move a referral to a new state, appending the change to its state history
// @tags Referencias
// @Accept json
// @Produce json
// @Param Docwatch-Request-ID header string false "User provided request ID to match against logs"
// @Param id_referencia path string true "Referral ID"
// @Param update body catalog.ReferenciaUpdate true "New state"
// @Success 200 {object} APIRestRespEntityKey "success"
// @Failure 400 {object} goutils.RestAPIBaseResponse "error"
// @Failure 404 {object} goutils.RestAPIBaseResponse "error"
// @Failure 500 {object} goutils.RestAPIBaseResponse "error"
// @Header 200,400,404,500 {string} Docwatch-Request-ID "Request ID to match against logs"
// @Router /v1/actualizar-referencia/{id_referencia} [put]
func (h APIRestCatalogHandler) UpdateReferencia(w http.ResponseWriter, r *http.Request) {
	var update catalog.ReferenciaUpdate
	h.changeEntity(w, r, entityChange{
		action:      "update referencia",
		collection:  catalog.CollectionReferencias,
		keyVar:      "id_referencia",
		body:        &update,
		successCode: http.StatusOK,
		apply: keepKey(func(ctxt context.Context, key string) error {
			return h.catalog.Referencias.UpdateState(ctxt, key, update)
		}),
	})
}

// UpdateReferenciaHandler Wrapper around UpdateReferencia
func (h APIRestCatalogHandler) UpdateReferenciaHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.UpdateReferencia(w, r)
	}
}

// DeleteReferencia godoc
// @Summary Delete a referral
// @Description Delete a referral by ID
// @tags Referencias
// @Produce json
// @Param Docwatch-Request-ID header string false "User provided request ID to match against logs"
// @Param id_referencia path string true "Referral ID"
// @Success 200 {object} APIRestRespEntityKey "success"
// @Failure 400 {object} goutils.RestAPIBaseResponse "error"
// @Failure 404 {object} goutils.RestAPIBaseResponse "error"
// @Failure 500 {object} goutils.RestAPIBaseResponse "error"
// @Header 200,400,404,500 {string} Docwatch-Request-ID "Request ID to match against logs"
// @Router /v1/eliminar-referencia/{id_referencia} [delete]
func (h APIRestCatalogHandler) DeleteReferencia(w http.ResponseWriter, r *http.Request) {
	h.changeEntity(w, r, entityChange{
		action:      "delete referencia",
		collection:  catalog.CollectionReferencias,
		keyVar:      "id_referencia",
		successCode: http.StatusOK,
		apply:       keepKey(h.catalog.Referencias.Delete),
	})
}

// DeleteReferenciaHandler Wrapper around DeleteReferencia
func (h APIRestCatalogHandler) DeleteReferenciaHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.DeleteReferencia(w, r)
	}
}
