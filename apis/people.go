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
// Collaborators

// ListColaboradores godoc
// @Summary List collaborators
// @Description List every registered collaborator
// @tags Colaboradores
// @Produce json
// @Param Docwatch-Request-ID header string false "User provided request ID to match against logs"
// @Success 200 {object} APIRestRespEntities "success"
// @Failure 500 {object} goutils.RestAPIBaseResponse "error"
// @Header 200,500 {string} Docwatch-Request-ID "Request ID to match against logs"
// @Router /v1/colaboradores [get]
func (h APIRestCatalogHandler) ListColaboradores(w http.ResponseWriter, r *http.Request) {
	h.listEntities(w, r, catalog.CollectionColaboradores, h.catalog.Colaboradores.List)
}

// ListColaboradoresHandler Wrapper around ListColaboradores
func (h APIRestCatalogHandler) ListColaboradoresHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.ListColaboradores(w, r)
	}
}

// GetColaborador godoc
// @Summary Fetch one collaborator
// @Description Fetch a collaborator by employee number
// @tags Colaboradores
// @Produce json
// @Param Docwatch-Request-ID header string false "User provided request ID to match against logs"
// @Param numero_empleado path string true "Employee number"
// @Success 200 {object} APIRestRespEntity "success"
// @Failure 400 {object} goutils.RestAPIBaseResponse "error"
// @Failure 404 {object} goutils.RestAPIBaseResponse "error"
// @Failure 500 {object} goutils.RestAPIBaseResponse "error"
// @Header 200,400,404,500 {string} Docwatch-Request-ID "Request ID to match against logs"
// @Router /v1/colaborador/{numero_empleado} [get]
func (h APIRestCatalogHandler) GetColaborador(w http.ResponseWriter, r *http.Request) {
	h.getEntity(w, r, "colaborador", "numero_empleado", h.catalog.Colaboradores.Get)
}

// GetColaboradorHandler Wrapper around GetColaborador
func (h APIRestCatalogHandler) GetColaboradorHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.GetColaborador(w, r)
	}
}

// CreateColaborador godoc
// @Summary Register a collaborator
// @Description Register a new collaborator. The response key is the generated collaborator ID.
// @tags Colaboradores
// @Accept json
// @Produce json
// @Param Docwatch-Request-ID header string false "User provided request ID to match against logs"
// @Param colaborador body catalog.NewColaborador true "Collaborator"
// @Success 201 {object} APIRestRespEntityKey "success"
// @Failure 400 {object} goutils.RestAPIBaseResponse "error"
// @Failure 500 {object} goutils.RestAPIBaseResponse "error"
// @Header 201,400,500 {string} Docwatch-Request-ID "Request ID to match against logs"
// @Router /v1/nuevo-colaborador [post]
func (h APIRestCatalogHandler) CreateColaborador(w http.ResponseWriter, r *http.Request) {
	var request catalog.NewColaborador
	h.changeEntity(w, r, entityChange{
		action:      "create colaborador",
		collection:  catalog.CollectionColaboradores,
		body:        &request,
		successCode: http.StatusCreated,
		apply: func(ctxt context.Context, _ string) (string, error) {
			return h.catalog.Colaboradores.Create(ctxt, request)
		},
	})
}

// CreateColaboradorHandler Wrapper around CreateColaborador
func (h APIRestCatalogHandler) CreateColaboradorHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.CreateColaborador(w, r)
	}
}

// UpdateColaborador godoc
// @Summary Update collaborators
// @Description Apply the non-empty fields to every collaborator with the employee number. The response key is the employee number afterwards.
// @tags Colaboradores
// @Accept json
// @Produce json
// @Param Docwatch-Request-ID header string false "User provided request ID to match against logs"
// @Param numero_empleado path string true "Employee number"
// @Param update body catalog.ColaboradorUpdate true "Fields to change"
// @Success 200 {object} APIRestRespEntityKey "success"
// @Failure 400 {object} goutils.RestAPIBaseResponse "error"
// @Failure 404 {object} goutils.RestAPIBaseResponse "error"
// @Failure 500 {object} goutils.RestAPIBaseResponse "error"
// @Header 200,400,404,500 {string} Docwatch-Request-ID "Request ID to match against logs"
// @Router /v1/actualizar-colaborador/{numero_empleado} [put]
func (h APIRestCatalogHandler) UpdateColaborador(w http.ResponseWriter, r *http.Request) {
	var update catalog.ColaboradorUpdate
	h.changeEntity(w, r, entityChange{
		action:      "update colaborador",
		collection:  catalog.CollectionColaboradores,
		keyVar:      "numero_empleado",
		body:        &update,
		successCode: http.StatusOK,
		apply: func(ctxt context.Context, key string) (string, error) {
			return h.catalog.Colaboradores.Update(ctxt, key, update)
		},
	})
}

// UpdateColaboradorHandler Wrapper around UpdateColaborador
func (h APIRestCatalogHandler) UpdateColaboradorHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.UpdateColaborador(w, r)
	}
}

// DeleteColaborador godoc
// @Summary Delete collaborators
// @Description Delete every collaborator with the employee number
// @tags Colaboradores
// @Produce json
// @Param Docwatch-Request-ID header string false "User provided request ID to match against logs"
// @Param numero_empleado path string true "Employee number"
// @Success 200 {object} APIRestRespEntityKey "success"
// @Failure 400 {object} goutils.RestAPIBaseResponse "error"
// @Failure 404 {object} goutils.RestAPIBaseResponse "error"
// @Failure 500 {object} goutils.RestAPIBaseResponse "error"
// @Header 200,400,404,500 {string} Docwatch-Request-ID "Request ID to match against logs"
// @Router /v1/eliminar-colaborador/{numero_empleado} [delete]
func (h APIRestCatalogHandler) DeleteColaborador(w http.ResponseWriter, r *http.Request) {
	h.changeEntity(w, r, entityChange{
		action:      "delete colaborador",
		collection:  catalog.CollectionColaboradores,
		keyVar:      "numero_empleado",
		successCode: http.StatusOK,
		apply:       keepKey(h.catalog.Colaboradores.Delete),
	})
}

// DeleteColaboradorHandler Wrapper around DeleteColaborador
func (h APIRestCatalogHandler) DeleteColaboradorHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.DeleteColaborador(w, r)
	}
}

// =======================================================================
// Micro-entrepreneurs

// ListMicroempresarios godoc
// @Summary List micro-entrepreneurs
// @Description List every registered micro-entrepreneur
// @tags Microempresarios
// @Produce json
// @Param Docwatch-Request-ID header string false "User provided request ID to match against logs"
// @Success 200 {object} APIRestRespEntities "success"
// @Failure 500 {object} goutils.RestAPIBaseResponse "error"
// @Header 200,500 {string} Docwatch-Request-ID "Request ID to match against logs"
// @Router /v1/microempresarios [get]
func (h APIRestCatalogHandler) ListMicroempresarios(w http.ResponseWriter, r *http.Request) {
	h.listEntities(w, r, catalog.CollectionMicroempresarios, h.catalog.Microempresarios.List)
}

// ListMicroempresariosHandler Wrapper around ListMicroempresarios
func (h APIRestCatalogHandler) ListMicroempresariosHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.ListMicroempresarios(w, r)
	}
}

// GetMicroempresario godoc
// @Summary Fetch one micro-entrepreneur
// @Description Fetch a micro-entrepreneur by ID
// @tags Microempresarios
// @Produce json
// @Param Docwatch-Request-ID header string false "User provided request ID to match against logs"
// @Param id_microempresario path string true "Micro-entrepreneur ID"
// @Success 200 {object} APIRestRespEntity "success"
// @Failure 400 {object} goutils.RestAPIBaseResponse "error"
// @Failure 404 {object} goutils.RestAPIBaseResponse "error"
// @Failure 500 {object} goutils.RestAPIBaseResponse "error"
// @Header 200,400,404,500 {string} Docwatch-Request-ID "Request ID to match against logs"
// @Router /v1/microempresario/{id_microempresario} [get]
func (h APIRestCatalogHandler) GetMicroempresario(w http.ResponseWriter, r *http.Request) {
	h.getEntity(w, r, "microempresario", "id_microempresario", h.catalog.Microempresarios.Get)
}

// GetMicroempresarioHandler Wrapper around GetMicroempresario
func (h APIRestCatalogHandler) GetMicroempresarioHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.GetMicroempresario(w, r)
	}
}

// CreateMicroempresario godoc
// @Summary Register a micro-entrepreneur
// @Description Register a new micro-entrepreneur. The response key is the generated ID.
// @tags Microempresarios
// @Accept json
// @Produce json
// @Param Docwatch-Request-ID header string false "User provided request ID to match against logs"
// @Param microempresario body catalog.NewMicroempresario true "Micro-entrepreneur"
// @Success 201 {object} APIRestRespEntityKey "success"
// @Failure 400 {object} goutils.RestAPIBaseResponse "error"
// @Failure 500 {object} goutils.RestAPIBaseResponse "error"
// @Header 201,400,500 {string} Docwatch-Request-ID "Request ID to match against logs"
// @Router /v1/nuevo-microempresario [post]
func (h APIRestCatalogHandler) CreateMicroempresario(w http.ResponseWriter, r *http.Request) {
	var request catalog.NewMicroempresario
	h.changeEntity(w, r, entityChange{
		action:      "create microempresario",
		collection:  catalog.CollectionMicroempresarios,
		body:        &request,
		successCode: http.StatusCreated,
		apply: func(ctxt context.Context, _ string) (string, error) {
			return h.catalog.Microempresarios.Create(ctxt, request)
		},
	})
}

// CreateMicroempresarioHandler Wrapper around CreateMicroempresario
func (h APIRestCatalogHandler) CreateMicroempresarioHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.CreateMicroempresario(w, r)
	}
}

// UpdateMicroempresario godoc
// @Summary Update a micro-entrepreneur
// @Description Apply the non-empty fields. Address and coordinates are merged member by member.
// @tags Microempresarios
// @Accept json
// @Produce json
// @Param Docwatch-Request-ID header string false "User provided request ID to match against logs"
// @Param id_microempresario path string true "Micro-entrepreneur ID"
// @Param update body catalog.MicroempresarioUpdate true "Fields to change"
// @Success 200 {object} APIRestRespEntityKey "success"
// @Failure 400 {object} goutils.RestAPIBaseResponse "error"
// @Failure 404 {object} goutils.RestAPIBaseResponse "error"
// @Failure 500 {object} goutils.RestAPIBaseResponse "error"
// @Header 200,400,404,500 {string} Docwatch-Request-ID "Request ID to match against logs"
// @Router /v1/actualizar-microempresario/{id_microempresario} [put]
func (h APIRestCatalogHandler) UpdateMicroempresario(w http.ResponseWriter, r *http.Request) {
	var update catalog.MicroempresarioUpdate
	h.changeEntity(w, r, entityChange{
		action:      "update microempresario",
		collection:  catalog.CollectionMicroempresarios,
		keyVar:      "id_microempresario",
		body:        &update,
		successCode: http.StatusOK,
		apply: keepKey(func(ctxt context.Context, key string) error {
			return h.catalog.Microempresarios.Update(ctxt, key, update)
		}),
	})
}

// UpdateMicroempresarioHandler Wrapper around UpdateMicroempresario
func (h APIRestCatalogHandler) UpdateMicroempresarioHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.UpdateMicroempresario(w, r)
	}
}

// DeleteMicroempresario godoc
// @Summary Delete a micro-entrepreneur
// @Description Delete a micro-entrepreneur by ID
// @tags Microempresarios
// @Produce json
// @Param Docwatch-Request-ID header string false "User provided request ID to match against logs"
// @Param id_microempresario path string true "Micro-entrepreneur ID"
// @Success 200 {object} APIRestRespEntityKey "success"
// @Failure 400 {object} goutils.RestAPIBaseResponse "error"
// @Failure 404 {object} goutils.RestAPIBaseResponse "error"
// @Failure 500 {object} goutils.RestAPIBaseResponse "error"
// @Header 200,400,404,500 {string} Docwatch-Request-ID "Request ID to match against logs"
// @Router /v1/eliminar-microempresario/{id_microempresario} [delete]
func (h APIRestCatalogHandler) DeleteMicroempresario(w http.ResponseWriter, r *http.Request) {
	h.changeEntity(w, r, entityChange{
		action:      "delete microempresario",
		collection:  catalog.CollectionMicroempresarios,
		keyVar:      "id_microempresario",
		successCode: http.StatusOK,
		apply:       keepKey(h.catalog.Microempresarios.Delete),
	})
}

// DeleteMicroempresarioHandler Wrapper around DeleteMicroempresario
func (h APIRestCatalogHandler) DeleteMicroempresarioHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.DeleteMicroempresario(w, r)
	}
}

// =======================================================================
// Administrators

// ListAdministradores godoc
// @Summary List administrators
// @Description List every registered administrator
// @tags Administradores
// @Produce json
// @Param Docwatch-Request-ID header string false "User provided request ID to match against logs"
// @Success 200 {object} APIRestRespEntities "success"
// @Failure 500 {object} goutils.RestAPIBaseResponse "error"
// @Header 200,500 {string} Docwatch-Request-ID "Request ID to match against logs"
// @Router /v1/administradores [get]
func (h APIRestCatalogHandler) ListAdministradores(w http.ResponseWriter, r *http.Request) {
	h.listEntities(w, r, catalog.CollectionAdministradores, h.catalog.Administradores.List)
}

// ListAdministradoresHandler Wrapper around ListAdministradores
func (h APIRestCatalogHandler) ListAdministradoresHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.ListAdministradores(w, r)
	}
}

// GetAdministrador godoc
// @Summary Fetch one administrator
// @Description Fetch an administrator by ID
// @tags Administradores
// @Produce json
// @Param Docwatch-Request-ID header string false "User provided request ID to match against logs"
// @Param id_admin path string true "Administrator ID"
// @Success 200 {object} APIRestRespEntity "success"
// @Failure 400 {object} goutils.RestAPIBaseResponse "error"
// @Failure 404 {object} goutils.RestAPIBaseResponse "error"
// @Failure 500 {object} goutils.RestAPIBaseResponse "error"
// @Header 200,400,404,500 {string} Docwatch-Request-ID "Request ID to match against logs"
// @Router /v1/administrador/{id_admin} [get]
func (h APIRestCatalogHandler) GetAdministrador(w http.ResponseWriter, r *http.Request) {
	h.getEntity(w, r, "administrador", "id_admin", h.catalog.Administradores.Get)
}

// GetAdministradorHandler Wrapper around GetAdministrador
func (h APIRestCatalogHandler) GetAdministradorHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.GetAdministrador(w, r)
	}
}

// CreateAdministrador godoc
// @Summary Register an administrator
// @Description Register a new active administrator. The response key is the generated ID.
// @tags Administradores
// @Accept json
// @Produce json
// @Param Docwatch-Request-ID header string false "User provided request ID to match against logs"
// @Param administrador body catalog.NewAdministrador true "Administrator"
// @Success 201 {object} APIRestRespEntityKey "success"
// @Failure 400 {object} goutils.RestAPIBaseResponse "error"
// @Failure 500 {object} goutils.RestAPIBaseResponse "error"
// @Header 201,400,500 {string} Docwatch-Request-ID "Request ID to match against logs"
// @Router /v1/nuevo-administrador [post]
func (h APIRestCatalogHandler) CreateAdministrador(w http.ResponseWriter, r *http.Request) {
	var request catalog.NewAdministrador
	h.changeEntity(w, r, entityChange{
		action:      "create administrador",
		collection:  catalog.CollectionAdministradores,
		body:        &request,
		successCode: http.StatusCreated,
		apply: func(ctxt context.Context, _ string) (string, error) {
			return h.catalog.Administradores.Create(ctxt, request)
		},
	})
}

// CreateAdministradorHandler Wrapper around CreateAdministrador
func (h APIRestCatalogHandler) CreateAdministradorHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.CreateAdministrador(w, r)
	}
}

// UpdateAdministrador godoc
// @Summary Update an administrator
// @Description Apply the non-empty fields to an administrator
// @tags Administradores
// @Accept json
// @Produce json
// @Param Docwatch-Request-ID header string false "User provided request ID to match against logs"
// @Param id_admin path string true "Administrator ID"
// @Param update body catalog.AdministradorUpdate true "Fields to change"
// @Success 200 {object} APIRestRespEntityKey "success"
// @Failure 400 {object} goutils.RestAPIBaseResponse "error"
// @Failure 404 {object} goutils.RestAPIBaseResponse "error"
// @Failure 500 {object} goutils.RestAPIBaseResponse "error"
// @Header 200,400,404,500 {string} Docwatch-Request-ID "Request ID to match against logs"
// @Router /v1/actualizar-administrador/{id_admin} [put]
func (h APIRestCatalogHandler) UpdateAdministrador(w http.ResponseWriter, r *http.Request) {
	var update catalog.AdministradorUpdate
	h.changeEntity(w, r, entityChange{
		action:      "update administrador",
		collection:  catalog.CollectionAdministradores,
		keyVar:      "id_admin",
		body:        &update,
		successCode: http.StatusOK,
		apply: keepKey(func(ctxt context.Context, key string) error {
			return h.catalog.Administradores.Update(ctxt, key, update)
		}),
	})
}

// UpdateAdministradorHandler Wrapper around UpdateAdministrador
func (h APIRestCatalogHandler) UpdateAdministradorHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.UpdateAdministrador(w, r)
	}
}

// DeleteAdministrador godoc
// @Summary Delete an administrator
// @Description Delete an administrator by ID
// @tags Administradores
// @Produce json
// @Param Docwatch-Request-ID header string false "User provided request ID to match against logs"
// @Param id_admin path string true "Administrator ID"
// @Success 200 {object} APIRestRespEntityKey "success"
// @Failure 400 {object} goutils.RestAPIBaseResponse "error"
// @Failure 404 {object} goutils.RestAPIBaseResponse "error"
// @Failure 500 {object} goutils.RestAPIBaseResponse "error"
// @Header 200,400,404,500 {string} Docwatch-Request-ID "Request ID to match against logs"
// @Router /v1/eliminar-administrador/{id_admin} [delete]
func (h APIRestCatalogHandler) DeleteAdministrador(w http.ResponseWriter, r *http.Request) {
	h.changeEntity(w, r, entityChange{
		action:      "delete administrador",
		collection:  catalog.CollectionAdministradores,
		keyVar:      "id_admin",
		successCode: http.StatusOK,
		apply:       keepKey(h.catalog.Administradores.Delete),
	})
}

// DeleteAdministradorHandler Wrapper around DeleteAdministrador
func (h APIRestCatalogHandler) DeleteAdministradorHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.DeleteAdministrador(w, r)
	}
}
