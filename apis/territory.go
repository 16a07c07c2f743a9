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
// Routes

// ListRutas godoc
// @Summary List routes
// @Description List every defined route
// @tags Rutas
// @Produce json
// @Param Docwatch-Request-ID header string false "User provided request ID to match against logs"
// @Success 200 {object} APIRestRespEntities "success"
// @Failure 500 {object} goutils.RestAPIBaseResponse "error"
// @Header 200,500 {string} Docwatch-Request-ID "Request ID to match against logs"
// @Router /v1/rutas [get]
func (h APIRestCatalogHandler) ListRutas(w http.ResponseWriter, r *http.Request) {
	h.listEntities(w, r, catalog.CollectionRutas, h.catalog.Rutas.List)
}

// ListRutasHandler Wrapper around ListRutas
func (h APIRestCatalogHandler) ListRutasHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.ListRutas(w, r)
	}
}

// ListRutasByZona godoc
// @Summary List the routes of a zone
// @Description List every route associated with a zone. An unknown zone has no routes.
// @tags Rutas
// @Produce json
// @Param Docwatch-Request-ID header string false "User provided request ID to match against logs"
// @Param id_zona path string true "Zone ID"
// @Success 200 {object} APIRestRespEntities "success"
// @Failure 400 {object} goutils.RestAPIBaseResponse "error"
// @Failure 500 {object} goutils.RestAPIBaseResponse "error"
// @Header 200,400,500 {string} Docwatch-Request-ID "Request ID to match against logs"
// @Router /v1/rutas-por-zona/{id_zona} [get]
func (h APIRestCatalogHandler) ListRutasByZona(w http.ResponseWriter, r *http.Request) {
	idZona, err := readPathVar(r, "id_zona")
	h.listEntities(w, r, "rutas by zona", func(ctxt context.Context) ([]catalog.Record, error) {
		if err != nil {
			return nil, err
		}
		return h.catalog.Rutas.ByZona(ctxt, idZona)
	})
}

// ListRutasByZonaHandler Wrapper around ListRutasByZona
func (h APIRestCatalogHandler) ListRutasByZonaHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.ListRutasByZona(w, r)
	}
}

// GetRuta godoc
// @Summary Fetch one route
// @Description Fetch a route by ID
// @tags Rutas
// @Produce json
// @Param Docwatch-Request-ID header string false "User provided request ID to match against logs"
// @Param id_ruta path string true "Route ID"
// @Success 200 {object} APIRestRespEntity "success"
// @Failure 400 {object} goutils.RestAPIBaseResponse "error"
// @Failure 404 {object} goutils.RestAPIBaseResponse "error"
// @Failure 500 {object} goutils.RestAPIBaseResponse "error"
// @Header 200,400,404,500 {string} Docwatch-Request-ID "Request ID to match against logs"
// @Router /v1/ruta/{id_ruta} [get]
func (h APIRestCatalogHandler) GetRuta(w http.ResponseWriter, r *http.Request) {
	h.getEntity(w, r, "ruta", "id_ruta", h.catalog.Rutas.Get)
}

// GetRutaHandler Wrapper around GetRuta
func (h APIRestCatalogHandler) GetRutaHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.GetRuta(w, r)
	}
}

// CreateRuta godoc
// @Summary Define a route
// @Description Define a new route. The response key is the generated ID.
// @tags Rutas
// @Accept json
// @Produce json
// @Param Docwatch-Request-ID header string false "User provided request ID to match against logs"
// @Param ruta body catalog.NewRuta true "Route"
// @Success 201 {object} APIRestRespEntityKey "success"
// @Failure 400 {object} goutils.RestAPIBaseResponse "error"
// @Failure 500 {object} goutils.RestAPIBaseResponse "error"
// @Header 201,400,500 {string} Docwatch-Request-ID "Request ID to match against logs"
// @Router /v1/nueva-ruta [post]
func (h APIRestCatalogHandler) CreateRuta(w http.ResponseWriter, r *http.Request) {
	var request catalog.NewRuta
	h.changeEntity(w, r, entityChange{
		action:      "create ruta",
		collection:  catalog.CollectionRutas,
		body:        &request,
		successCode: http.StatusCreated,
		apply: func(ctxt context.Context, _ string) (string, error) {
			return h.catalog.Rutas.Create(ctxt, request)
		},
	})
}

// CreateRutaHandler Wrapper around CreateRuta
func (h APIRestCatalogHandler) CreateRutaHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.CreateRuta(w, r)
	}
}

// UpdateRuta godoc
// @Summary Update a route
// @Description Apply the non-empty fields to a route and stamp the update date
// @tags Rutas
// @Accept json
// @Produce json
// @Param Docwatch-Request-ID header string false "User provided request ID to match against logs"
// @Param id_ruta path string true "Route ID"
// @Param update body catalog.RutaUpdate true "Fields to change"
// @Success 200 {object} APIRestRespEntityKey "success"
// @Failure 400 {object} goutils.RestAPIBaseResponse "error"
// @Failure 404 {object} goutils.RestAPIBaseResponse "error"
// @Failure 500 {object} goutils.RestAPIBaseResponse "error"
// @Header 200,400,404,500 {string} Docwatch-Request-ID "Request ID to match against logs"
// @Router /v1/actualizar-ruta/{id_ruta} [put]
func (h APIRestCatalogHandler) UpdateRuta(w http.ResponseWriter, r *http.Request) {
	var update catalog.RutaUpdate
	h.changeEntity(w, r, entityChange{
		action:      "update ruta",
		collection:  catalog.CollectionRutas,
		keyVar:      "id_ruta",
		body:        &update,
		successCode: http.StatusOK,
		apply: keepKey(func(ctxt context.Context, key string) error {
			return h.catalog.Rutas.Update(ctxt, key, update)
		}),
	})
}

// UpdateRutaHandler Wrapper around UpdateRuta
func (h APIRestCatalogHandler) UpdateRutaHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.UpdateRuta(w, r)
	}
}

// DeleteRuta godoc
// @Summary Delete a route
// @Description Delete a route by ID
// @tags Rutas
// @Produce json
// @Param Docwatch-Request-ID header string false "User provided request ID to match against logs"
// @Param id_ruta path string true "Route ID"
// @Success 200 {object} APIRestRespEntityKey "success"
// @Failure 400 {object} goutils.RestAPIBaseResponse "error"
// @Failure 404 {object} goutils.RestAPIBaseResponse "error"
// @Failure 500 {object} goutils.RestAPIBaseResponse "error"
// @Header 200,400,404,500 {string} Docwatch-Request-ID "Request ID to match against logs"
// @Router /v1/eliminar-ruta/{id_ruta} [delete]
func (h APIRestCatalogHandler) DeleteRuta(w http.ResponseWriter, r *http.Request) {
	h.changeEntity(w, r, entityChange{
		action:      "delete ruta",
		collection:  catalog.CollectionRutas,
		keyVar:      "id_ruta",
		successCode: http.StatusOK,
		apply:       keepKey(h.catalog.Rutas.Delete),
	})
}

// DeleteRutaHandler Wrapper around DeleteRuta
func (h APIRestCatalogHandler) DeleteRutaHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.DeleteRuta(w, r)
	}
}

// =======================================================================
// Zones

// ListZonas godoc
// @Summary List zones
// @Description List every defined zone
// @tags Zonas
// @Produce json
// @Param Docwatch-Request-ID header string false "User provided request ID to match against logs"
// @Success 200 {object} APIRestRespEntities "success"
// @Failure 500 {object} goutils.RestAPIBaseResponse "error"
// @Header 200,500 {string} Docwatch-Request-ID "Request ID to match against logs"
// @Router /v1/zonas [get]
func (h APIRestCatalogHandler) ListZonas(w http.ResponseWriter, r *http.Request) {
	h.listEntities(w, r, catalog.CollectionZonas, h.catalog.Zonas.List)
}

// ListZonasHandler Wrapper around ListZonas
func (h APIRestCatalogHandler) ListZonasHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.ListZonas(w, r)
	}
}

// GetZona godoc
// @Summary Fetch one zone
// @Description Fetch a zone by ID
// @tags Zonas
// @Produce json
// @Param Docwatch-Request-ID header string false "User provided request ID to match against logs"
// @Param id_zona path string true "Zone ID"
// @Success 200 {object} APIRestRespEntity "success"
// @Failure 400 {object} goutils.RestAPIBaseResponse "error"
// @Failure 404 {object} goutils.RestAPIBaseResponse "error"
// @Failure 500 {object} goutils.RestAPIBaseResponse "error"
// @Header 200,400,404,500 {string} Docwatch-Request-ID "Request ID to match against logs"
// @Router /v1/zona/{id_zona} [get]
func (h APIRestCatalogHandler) GetZona(w http.ResponseWriter, r *http.Request) {
	h.getEntity(w, r, "zona", "id_zona", h.catalog.Zonas.Get)
}

// GetZonaHandler Wrapper around GetZona
func (h APIRestCatalogHandler) GetZonaHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.GetZona(w, r)
	}
}

// CreateZona godoc
// @Summary Define a zone
// @Description Define a new zone. The response key is the generated ID.
// @tags Zonas
// @Accept json
// @Produce json
// @Param Docwatch-Request-ID header string false "User provided request ID to match against logs"
// @Param zona body catalog.NewZona true "Zone"
// @Success 201 {object} APIRestRespEntityKey "success"
// @Failure 400 {object} goutils.RestAPIBaseResponse "error"
// @Failure 500 {object} goutils.RestAPIBaseResponse "error"
// @Header 201,400,500 {string} Docwatch-Request-ID "Request ID to match against logs"
// @Router /v1/nueva-zona [post]
func (h APIRestCatalogHandler) CreateZona(w http.ResponseWriter, r *http.Request) {
	var request catalog.NewZona
	h.changeEntity(w, r, entityChange{
		action:      "create zona",
		collection:  catalog.CollectionZonas,
		body:        &request,
		successCode: http.StatusCreated,
		apply: func(ctxt context.Context, _ string) (string, error) {
			return h.catalog.Zonas.Create(ctxt, request)
		},
	})
}

// CreateZonaHandler Wrapper around CreateZona
func (h APIRestCatalogHandler) CreateZonaHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.CreateZona(w, r)
	}
}

// UpdateZona godoc
// @Summary Update a zone
// @Description Apply the non-empty fields to a zone
// @tags Zonas
// @Accept json
// @Produce json
// @Param Docwatch-Request-ID header string false "User provided request ID to match against logs"
// @Param id_zona path string true "Zone ID"
// @Param update body catalog.ZonaUpdate true "Fields to change"
// @Success 200 {object} APIRestRespEntityKey "success"
// @Failure 400 {object} goutils.RestAPIBaseResponse "error"
// @Failure 404 {object} goutils.RestAPIBaseResponse "error"
// @Failure 500 {object} goutils.RestAPIBaseResponse "error"
// @Header 200,400,404,500 {string} Docwatch-Request-ID "Request ID to match against logs"
// @Router /v1/actualizar-zona/{id_zona} [put]
func (h APIRestCatalogHandler) UpdateZona(w http.ResponseWriter, r *http.Request) {
	var update catalog.ZonaUpdate
	h.changeEntity(w, r, entityChange{
		action:      "update zona",
		collection:  catalog.CollectionZonas,
		keyVar:      "id_zona",
		body:        &update,
		successCode: http.StatusOK,
		apply: keepKey(func(ctxt context.Context, key string) error {
			return h.catalog.Zonas.Update(ctxt, key, update)
		}),
	})
}

// UpdateZonaHandler Wrapper around UpdateZona
func (h APIRestCatalogHandler) UpdateZonaHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.UpdateZona(w, r)
	}
}

// DeleteZona godoc
// @Summary Delete a zone
// @Description Delete every zone with the ID
// @tags Zonas
// @Produce json
// @Param Docwatch-Request-ID header string false "User provided request ID to match against logs"
// @Param id_zona path string true "Zone ID"
// @Success 200 {object} APIRestRespEntityKey "success"
// @Failure 400 {object} goutils.RestAPIBaseResponse "error"
// @Failure 404 {object} goutils.RestAPIBaseResponse "error"
// @Failure 500 {object} goutils.RestAPIBaseResponse "error"
// @Header 200,400,404,500 {string} Docwatch-Request-ID "Request ID to match against logs"
// @Router /v1/eliminar-zona/{id_zona} [delete]
func (h APIRestCatalogHandler) DeleteZona(w http.ResponseWriter, r *http.Request) {
	h.changeEntity(w, r, entityChange{
		action:      "delete zona",
		collection:  catalog.CollectionZonas,
		keyVar:      "id_zona",
		successCode: http.StatusOK,
		apply:       keepKey(h.catalog.Zonas.Delete),
	})
}

// DeleteZonaHandler Wrapper around DeleteZona
func (h APIRestCatalogHandler) DeleteZonaHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.DeleteZona(w, r)
	}
}
