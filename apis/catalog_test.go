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
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/apex/log"
	"github.com/colabnet/docwatch/catalog"
	"github.com/colabnet/docwatch/common"
	"github.com/colabnet/docwatch/storage"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
)

func testHTTPConfig() *common.HTTPConfig {
	return &common.HTTPConfig{
		Logging: common.HTTPRequestLogging{
			RequestIDHeader: "Docwatch-Request-ID",
			DoNotLogHeaders: []string{"Authorization"},
		},
	}
}

func setupCatalogRouter(t *testing.T) (*mux.Router, storage.DocumentStore) {
	store, err := storage.GetMemoryDocumentStore("apis-ut", 16)
	assert.Nil(t, err)
	entities, err := catalog.GetCatalog(store, nil)
	assert.Nil(t, err)
	uut, err := GetAPIRestCatalogHandler(entities, store, testHTTPConfig(), time.Second)
	assert.Nil(t, err)
	router := mux.NewRouter()
	RegisterCatalogRoutes(router, uut)
	return router, store
}

func call(
	t *testing.T, router *mux.Router, method, path string, body interface{},
) *httptest.ResponseRecorder {
	var req *http.Request
	var err error
	if body != nil {
		serialized, err := json.Marshal(body)
		assert.Nil(t, err)
		req, err = http.NewRequest(method, path, bytes.NewReader(serialized))
		assert.Nil(t, err)
	} else {
		req, err = http.NewRequest(method, path, nil)
		assert.Nil(t, err)
	}
	respRecorder := httptest.NewRecorder()
	router.ServeHTTP(respRecorder, req)
	return respRecorder
}

func TestCatalogHandlerHealth(t *testing.T) {
	assert := assert.New(t)
	log.SetLevel(log.DebugLevel)

	router, store := setupCatalogRouter(t)

	// Case 0: alive and ready
	assert.Equal(http.StatusOK, call(t, router, "GET", "/v1/alive", nil).Code)
	assert.Equal(http.StatusOK, call(t, router, "GET", "/v1/ready", nil).Code)

	// Case 1: not ready once the store is closed
	assert.Nil(store.Close())
	resp := call(t, router, "GET", "/v1/ready", nil)
	assert.Equal(http.StatusInternalServerError, resp.Code)
	var msg StandardResponse
	assert.Nil(json.Unmarshal(resp.Body.Bytes(), &msg))
	assert.False(msg.Success)

	// Case 2: missing handler params
	_, err := GetAPIRestCatalogHandler(nil, store, testHTTPConfig(), time.Second)
	assert.NotNil(err)
}

func TestColaboradorEndpoints(t *testing.T) {
	assert := assert.New(t)
	log.SetLevel(log.DebugLevel)

	router, store := setupCatalogRouter(t)
	defer func() {
		assert.Nil(store.Close())
	}()

	// Case 0: create
	var colaboradorID string
	{
		resp := call(t, router, "POST", "/v1/nuevo-colaborador", catalog.NewColaborador{
			Nombre: "Ana", NumeroEmpleado: "E100",
		})
		assert.Equal(http.StatusCreated, resp.Code)
		var msg APIRestRespEntityKey
		assert.Nil(json.Unmarshal(resp.Body.Bytes(), &msg))
		assert.True(msg.Success)
		assert.Equal(catalog.CollectionColaboradores, msg.Collection)
		assert.Regexp("^col[0-9a-f]{8}$", msg.Key)
		colaboradorID = msg.Key
	}

	// Case 1: bad bodies
	{
		req, err := http.NewRequest("POST", "/v1/nuevo-colaborador", bytes.NewReader([]byte("{oops")))
		assert.Nil(err)
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)
		assert.Equal(http.StatusBadRequest, resp.Code)

		resp = call(t, router, "POST", "/v1/nuevo-colaborador", map[string]string{"nombre": "Sin numero"})
		assert.Equal(http.StatusBadRequest, resp.Code)
		var msg StandardResponse
		assert.Nil(json.Unmarshal(resp.Body.Bytes(), &msg))
		assert.False(msg.Success)
		assert.NotNil(msg.Error)
	}

	// Case 2: list and get
	{
		resp := call(t, router, "GET", "/v1/colaboradores", nil)
		assert.Equal(http.StatusOK, resp.Code)
		var list APIRestRespEntities
		assert.Nil(json.Unmarshal(resp.Body.Bytes(), &list))
		assert.Len(list.Entities, 1)
		assert.Equal(colaboradorID, list.Entities[0]["id_colaborador"])

		resp = call(t, router, "GET", "/v1/colaborador/E100", nil)
		assert.Equal(http.StatusOK, resp.Code)
		var one APIRestRespEntity
		assert.Nil(json.Unmarshal(resp.Body.Bytes(), &one))
		assert.Equal("Ana", one.Entity["nombre"])
		assert.NotEmpty(one.Entity["id"])

		assert.Equal(http.StatusNotFound, call(t, router, "GET", "/v1/colaborador/E404", nil).Code)
	}

	// Case 3: update with rename
	{
		resp := call(t, router, "PUT", "/v1/actualizar-colaborador/E100", catalog.ColaboradorUpdate{
			NuevoNumeroEmpleado: "E101",
		})
		assert.Equal(http.StatusOK, resp.Code)
		var msg APIRestRespEntityKey
		assert.Nil(json.Unmarshal(resp.Body.Bytes(), &msg))
		assert.Equal("E101", msg.Key)

		resp = call(t, router, "PUT", "/v1/actualizar-colaborador/E100", catalog.ColaboradorUpdate{
			Nombre: "X",
		})
		assert.Equal(http.StatusNotFound, resp.Code)
	}

	// Case 4: delete
	{
		assert.Equal(http.StatusOK, call(t, router, "DELETE", "/v1/eliminar-colaborador/E101", nil).Code)
		assert.Equal(http.StatusNotFound, call(t, router, "DELETE", "/v1/eliminar-colaborador/E101", nil).Code)
		// The delete route does not answer GET
		assert.NotEqual(http.StatusOK, call(t, router, "GET", "/v1/eliminar-colaborador/E101", nil).Code)
	}
}

func TestReferenciaAndRutaEndpoints(t *testing.T) {
	assert := assert.New(t)
	log.SetLevel(log.DebugLevel)

	router, store := setupCatalogRouter(t)
	defer func() {
		assert.Nil(store.Close())
	}()

	readKey := func(resp *httptest.ResponseRecorder) string {
		var msg APIRestRespEntityKey
		assert.Nil(json.Unmarshal(resp.Body.Bytes(), &msg))
		return msg.Key
	}

	// Case 0: referral life cycle
	{
		resp := call(t, router, "POST", "/v1/nueva-referencia", catalog.NewReferencia{
			IDColaborador: "col1", IDMicroempresario: "me1",
		})
		assert.Equal(http.StatusCreated, resp.Code)
		refID := readKey(resp)

		resp = call(
			t, router, "PUT", fmt.Sprintf("/v1/actualizar-referencia/%s", refID),
			catalog.ReferenciaUpdate{EstadoReferencia: "aceptada"},
		)
		assert.Equal(http.StatusOK, resp.Code)
		assert.Equal(refID, readKey(resp))

		resp = call(t, router, "GET", fmt.Sprintf("/v1/referencia/%s", refID), nil)
		assert.Equal(http.StatusOK, resp.Code)
		var one APIRestRespEntity
		assert.Nil(json.Unmarshal(resp.Body.Bytes(), &one))
		assert.Equal("aceptada", one.Entity["estado_referencia"])
		history, ok := one.Entity["historial_estados"].([]interface{})
		assert.True(ok)
		assert.Len(history, 2)

		resp = call(
			t, router, "PUT", fmt.Sprintf("/v1/actualizar-referencia/%s", refID),
			map[string]string{},
		)
		assert.Equal(http.StatusBadRequest, resp.Code)
	}

	// Case 1: routes by zone, where the by-zone path must not be taken for the route list
	{
		resp := call(t, router, "POST", "/v1/nueva-zona", catalog.NewZona{
			NombreZona: "Norte", Estado: "Jalisco",
		})
		assert.Equal(http.StatusCreated, resp.Code)
		zonaID := readKey(resp)

		resp = call(t, router, "POST", "/v1/nueva-ruta", catalog.NewRuta{
			NombreRuta: "R1", IDZonaAsociada: zonaID,
		})
		assert.Equal(http.StatusCreated, resp.Code)
		rutaID := readKey(resp)

		resp = call(t, router, "GET", fmt.Sprintf("/v1/rutas-por-zona/%s", zonaID), nil)
		assert.Equal(http.StatusOK, resp.Code)
		var list APIRestRespEntities
		assert.Nil(json.Unmarshal(resp.Body.Bytes(), &list))
		assert.Len(list.Entities, 1)
		assert.Equal(rutaID, list.Entities[0]["id_ruta"])

		resp = call(t, router, "GET", "/v1/rutas", nil)
		assert.Equal(http.StatusOK, resp.Code)
		list = APIRestRespEntities{}
		assert.Nil(json.Unmarshal(resp.Body.Bytes(), &list))
		assert.Len(list.Entities, 1)

		resp = call(t, router, "PUT", fmt.Sprintf("/v1/actualizar-ruta/%s", rutaID), catalog.RutaUpdate{
			NombreRuta: "R1 bis",
		})
		assert.Equal(http.StatusOK, resp.Code)
		assert.Equal(http.StatusOK, call(t, router, "DELETE", fmt.Sprintf("/v1/eliminar-ruta/%s", rutaID), nil).Code)
		assert.Equal(http.StatusOK, call(t, router, "DELETE", fmt.Sprintf("/v1/eliminar-zona/%s", zonaID), nil).Code)
		assert.Equal(http.StatusNotFound, call(t, router, "GET", fmt.Sprintf("/v1/zona/%s", zonaID), nil).Code)
	}
}

func TestPeopleAndIncentiveEndpoints(t *testing.T) {
	assert := assert.New(t)
	log.SetLevel(log.DebugLevel)

	router, store := setupCatalogRouter(t)
	defer func() {
		assert.Nil(store.Close())
	}()

	readKey := func(resp *httptest.ResponseRecorder) string {
		var msg APIRestRespEntityKey
		assert.Nil(json.Unmarshal(resp.Body.Bytes(), &msg))
		return msg.Key
	}

	// Case 0: micro-entrepreneur
	{
		resp := call(t, router, "POST", "/v1/nuevo-microempresario", catalog.NewMicroempresario{
			Nombre: "Rosa", Ubicacion: &catalog.Ubicacion{Calle: "Juarez", Colonia: "Centro"},
		})
		assert.Equal(http.StatusCreated, resp.Code)
		id := readKey(resp)
		resp = call(t, router, "PUT", fmt.Sprintf("/v1/actualizar-microempresario/%s", id),
			catalog.MicroempresarioUpdate{Ubicacion: &catalog.Ubicacion{Calle: "Hidalgo"}},
		)
		assert.Equal(http.StatusOK, resp.Code)
		resp = call(t, router, "GET", fmt.Sprintf("/v1/microempresario/%s", id), nil)
		var one APIRestRespEntity
		assert.Nil(json.Unmarshal(resp.Body.Bytes(), &one))
		ubicacion, ok := one.Entity["ubicacion"].(map[string]interface{})
		assert.True(ok)
		assert.Equal("Hidalgo", ubicacion["calle"])
		assert.Equal("Centro", ubicacion["colonia"])
		assert.Equal(http.StatusOK, call(t, router, "GET", "/v1/microempresarios", nil).Code)
		assert.Equal(http.StatusOK, call(t, router, "DELETE", fmt.Sprintf("/v1/eliminar-microempresario/%s", id), nil).Code)
	}

	// Case 1: administrator
	{
		resp := call(t, router, "POST", "/v1/nuevo-administrador", catalog.NewAdministrador{
			Nombre: "Eva", CorreoInstitucional: "eva@example.com",
		})
		assert.Equal(http.StatusCreated, resp.Code)
		id := readKey(resp)
		resp = call(t, router, "PUT", fmt.Sprintf("/v1/actualizar-administrador/%s", id),
			catalog.AdministradorUpdate{RolAdmin: "super"},
		)
		assert.Equal(http.StatusOK, resp.Code)
		assert.Equal(http.StatusOK, call(t, router, "GET", fmt.Sprintf("/v1/administrador/%s", id), nil).Code)
		assert.Equal(http.StatusOK, call(t, router, "GET", "/v1/administradores", nil).Code)
		assert.Equal(http.StatusOK, call(t, router, "DELETE", fmt.Sprintf("/v1/eliminar-administrador/%s", id), nil).Code)
	}

	// Case 2: incentive
	{
		resp := call(t, router, "POST", "/v1/nuevo-incentivo", catalog.NewIncentivo{
			Titulo: "Bono", Descripcion: "Bono mensual",
		})
		assert.Equal(http.StatusCreated, resp.Code)
		id := readKey(resp)
		assert.Equal(http.StatusOK, call(t, router, "GET", fmt.Sprintf("/v1/incentivo/%s", id), nil).Code)
		resp = call(t, router, "GET", "/v1/incentivos", nil)
		var list APIRestRespEntities
		assert.Nil(json.Unmarshal(resp.Body.Bytes(), &list))
		assert.Len(list.Entities, 1)
	}
}

func TestCatalogHandlerTimeout(t *testing.T) {
	assert := assert.New(t)

	ctxt, cancel := boundContext(context.Background(), time.Millisecond)
	defer cancel()
	<-ctxt.Done()
	assert.Equal(context.DeadlineExceeded, ctxt.Err())

	ctxt, cancel = boundContext(context.Background(), 0)
	assert.Nil(ctxt.Err())
	cancel()
	assert.NotNil(ctxt.Err())
}
