package catalog

import (
	"context"
)

// Ubicacion postal address of a business
type Ubicacion struct {
	Estado         string `json:"estado,omitempty"`
	Municipio      string `json:"municipio,omitempty"`
	Colonia        string `json:"colonia,omitempty"`
	CodigoPostal   string `json:"codigo_postal,omitempty"`
	Calle          string `json:"calle,omitempty"`
	NumeroEdificio string `json:"numero_edificio,omitempty"`
}

// merge overlay the non-empty members of update onto u
func (u Ubicacion) merge(update Ubicacion) Ubicacion {
	return Ubicacion{
		Estado:         firstNonEmpty(update.Estado, u.Estado),
		Municipio:      firstNonEmpty(update.Municipio, u.Municipio),
		Colonia:        firstNonEmpty(update.Colonia, u.Colonia),
		CodigoPostal:   firstNonEmpty(update.CodigoPostal, u.CodigoPostal),
		Calle:          firstNonEmpty(update.Calle, u.Calle),
		NumeroEdificio: firstNonEmpty(update.NumeroEdificio, u.NumeroEdificio),
	}
}

// Coordenadas geographic coordinates of a business
type Coordenadas struct {
	Latitud  float64 `json:"latitud,omitempty"`
	Longitud float64 `json:"longitud,omitempty"`
}

// merge overlay the non-zero members of update onto c
func (c Coordenadas) merge(update Coordenadas) Coordenadas {
	return Coordenadas{
		Latitud:  firstNonZero(update.Latitud, c.Latitud),
		Longitud: firstNonZero(update.Longitud, c.Longitud),
	}
}

// NewMicroempresario parameters for registering a micro-entrepreneur
type NewMicroempresario struct {
	Nombre                 string       `json:"nombre" validate:"required"`
	Apellidos              string       `json:"apellidos,omitempty"`
	Telefono               string       `json:"telefono,omitempty"`
	CorreoElectronico      string       `json:"correo_electronico,omitempty" validate:"omitempty,email"`
	NombreNegocio          string       `json:"nombre_negocio,omitempty"`
	TipoNegocio            string       `json:"tipo_negocio,omitempty"`
	FotoNegocioURL         string       `json:"foto_negocio_url,omitempty"`
	Ubicacion              *Ubicacion   `json:"ubicacion,omitempty"`
	CoordenadasGeograficas *Coordenadas `json:"coordenadas_geograficas,omitempty"`
}

// MicroempresarioUpdate partial update of a micro-entrepreneur. Empty members are left
// unchanged, including the members of the nested address and coordinates.
type MicroempresarioUpdate struct {
	Nombre                 string       `json:"nombre,omitempty"`
	Apellidos              string       `json:"apellidos,omitempty"`
	Telefono               string       `json:"telefono,omitempty"`
	CorreoElectronico      string       `json:"correo_electronico,omitempty" validate:"omitempty,email"`
	NombreNegocio          string       `json:"nombre_negocio,omitempty"`
	TipoNegocio            string       `json:"tipo_negocio,omitempty"`
	FotoNegocioURL         string       `json:"foto_negocio_url,omitempty"`
	Ubicacion              *Ubicacion   `json:"ubicacion,omitempty"`
	CoordenadasGeograficas *Coordenadas `json:"coordenadas_geograficas,omitempty"`
}

// storedMicroempresario the nested parts of a stored micro-entrepreneur
type storedMicroempresario struct {
	Ubicacion              Ubicacion   `json:"ubicacion"`
	CoordenadasGeograficas Coordenadas `json:"coordenadas_geograficas"`
}

// Microempresarios micro-entrepreneurs, addressed by id_microempresario
type Microempresarios struct {
	controller
}

// Create register a micro-entrepreneur, returning its generated ID
func (c Microempresarios) Create(ctxt context.Context, request NewMicroempresario) (string, error) {
	if err := c.checkInput(&request); err != nil {
		return "", err
	}
	fields, err := presentFields(request)
	if err != nil {
		return "", err
	}
	fields["fecha_registro"] = c.today()
	return c.create(ctxt, fields)
}

// Update apply a partial update. The address and coordinates are merged member by member with
// the stored values.
func (c Microempresarios) Update(
	ctxt context.Context, id string, update MicroempresarioUpdate,
) error {
	if err := c.checkInput(&update); err != nil {
		return err
	}
	docs, err := c.find(ctxt, id)
	if err != nil {
		return err
	}
	// The nested merge is computed against the first match
	var current storedMicroempresario
	if err := docs[0].Decode(&current); err != nil {
		return err
	}
	nested := update
	if update.Ubicacion != nil {
		merged := current.Ubicacion.merge(*update.Ubicacion)
		nested.Ubicacion = &merged
	}
	if update.CoordenadasGeograficas != nil {
		merged := current.CoordenadasGeograficas.merge(*update.CoordenadasGeograficas)
		nested.CoordenadasGeograficas = &merged
	}
	fields, err := presentFields(nested)
	if err != nil {
		return err
	}
	return c.apply(ctxt, docs[:1], fields)
}
