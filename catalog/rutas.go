package catalog

import (
	"context"
)

// NewRuta parameters for defining a route
type NewRuta struct {
	NombreRuta     string `json:"nombre_ruta" validate:"required"`
	IDZonaAsociada string `json:"id_zona_asociada,omitempty"`
	// Ubicaciones the stops of the route, stored as provided
	Ubicaciones []interface{} `json:"ubicaciones,omitempty"`
}

// RutaUpdate partial update of a route. Empty members are left unchanged.
type RutaUpdate struct {
	NombreRuta     string        `json:"nombre_ruta,omitempty"`
	IDZonaAsociada string        `json:"id_zona_asociada,omitempty"`
	Ubicaciones    []interface{} `json:"ubicaciones,omitempty"`
}

// Rutas routes, addressed by id_ruta
type Rutas struct {
	controller
}

// Create define a route, returning its generated ID
func (c Rutas) Create(ctxt context.Context, request NewRuta) (string, error) {
	if err := c.checkInput(&request); err != nil {
		return "", err
	}
	fields, err := presentFields(request)
	if err != nil {
		return "", err
	}
	fields["fecha_creacion"] = c.today()
	return c.create(ctxt, fields)
}

// Update apply a partial update and stamp the update date
func (c Rutas) Update(ctxt context.Context, id string, update RutaUpdate) error {
	fields, err := presentFields(update)
	if err != nil {
		return err
	}
	fields["fecha_actualizacion"] = c.today()
	return c.update(ctxt, id, fields)
}

// ByZona fetch the routes associated with a zone
func (c Rutas) ByZona(ctxt context.Context, idZona string) ([]Record, error) {
	if err := c.checkKey(idZona); err != nil {
		return nil, err
	}
	return c.ByField(ctxt, "id_zona_asociada", idZona)
}
