package catalog

import "context"

// NewZona parameters for defining a zone
type NewZona struct {
	NombreZona                  string   `json:"nombre_zona" validate:"required"`
	Estado                      string   `json:"estado" validate:"required"`
	MunicipiosIncluidos         []string `json:"municipios_incluidos"`
	CodigosPostalesRelacionados []string `json:"codigos_postales_relacionados"`
}

// ZonaUpdate partial update of a zone. Empty members are left unchanged.
type ZonaUpdate struct {
	NombreZona                  string   `json:"nombre_zona,omitempty"`
	Estado                      string   `json:"estado,omitempty"`
	MunicipiosIncluidos         []string `json:"municipios_incluidos,omitempty"`
	CodigosPostalesRelacionados []string `json:"codigos_postales_relacionados,omitempty"`
}

// Zonas zones, addressed by id_zona
type Zonas struct {
	controller
}

// Create define a zone, returning its generated ID. Missing lists are stored empty.
func (c Zonas) Create(ctxt context.Context, request NewZona) (string, error) {
	if err := c.checkInput(&request); err != nil {
		return "", err
	}
	if request.MunicipiosIncluidos == nil {
		request.MunicipiosIncluidos = []string{}
	}
	if request.CodigosPostalesRelacionados == nil {
		request.CodigosPostalesRelacionados = []string{}
	}
	fields, err := presentFields(request)
	if err != nil {
		return "", err
	}
	return c.create(ctxt, fields)
}

// Update apply a partial update to every zone with the ID
func (c Zonas) Update(ctxt context.Context, id string, update ZonaUpdate) error {
	fields, err := presentFields(update)
	if err != nil {
		return err
	}
	return c.update(ctxt, id, fields)
}
