package catalog

import (
	"context"

	"github.com/apex/log"
)

// NewColaborador parameters for registering a collaborator
type NewColaborador struct {
	// Nombre first name
	Nombre string `json:"nombre" validate:"required"`
	// Apellidos last names
	Apellidos string `json:"apellidos,omitempty"`
	// NumeroEmpleado employee number, the business key of a collaborator
	NumeroEmpleado string `json:"numero_empleado" validate:"required,max=256"`
	// ZonaActual zone the collaborator currently works in
	ZonaActual string `json:"zona_actual,omitempty"`
	// Contrasenia account password
	Contrasenia string `json:"contrasenia,omitempty"`
	// FotoPerfilURL profile picture
	FotoPerfilURL string `json:"foto_perfil_url,omitempty"`
}

// ColaboradorUpdate partial update of a collaborator. Empty members are left unchanged.
type ColaboradorUpdate struct {
	Nombre    string `json:"nombre,omitempty"`
	Apellidos string `json:"apellidos,omitempty"`
	// NuevoNumeroEmpleado replaces the employee number
	NuevoNumeroEmpleado string `json:"nuevo_numero_empleado,omitempty"`
	ZonaActual          string `json:"zona_actual,omitempty"`
	Contrasenia         string `json:"contrasenia,omitempty"`
	FotoPerfilURL       string `json:"foto_perfil_url,omitempty"`
}

// Colaboradores collaborators, addressed by employee number
type Colaboradores struct {
	controller
}

// Create register a collaborator, returning the generated collaborator ID
func (c Colaboradores) Create(ctxt context.Context, request NewColaborador) (string, error) {
	if err := c.checkInput(&request); err != nil {
		return "", err
	}
	fields, err := presentFields(request)
	if err != nil {
		return "", err
	}
	id := newBusinessID("col")
	fields["id_colaborador"] = id
	fields["fecha_registro"] = c.today()
	fields["incentivos_canjeados"] = []interface{}{}
	fields["registro_actividades"] = []interface{}{}
	fields["notificaciones"] = []interface{}{}
	fields["rutas"] = []interface{}{}
	if _, err := c.create(ctxt, fields); err != nil {
		return "", err
	}
	log.WithFields(c.LogTags).Infof("Registered collaborator %s as %s", request.NumeroEmpleado, id)
	return id, nil
}

// Update apply a partial update to every collaborator with the employee number. Returns the
// employee number the collaborators are now known by.
func (c Colaboradores) Update(
	ctxt context.Context, numeroEmpleado string, update ColaboradorUpdate,
) (string, error) {
	fields, err := presentFields(update)
	if err != nil {
		return "", err
	}
	result := numeroEmpleado
	if update.NuevoNumeroEmpleado != "" {
		if err := c.checkKey(update.NuevoNumeroEmpleado); err != nil {
			return "", err
		}
		delete(fields, "nuevo_numero_empleado")
		fields["numero_empleado"] = update.NuevoNumeroEmpleado
		result = update.NuevoNumeroEmpleado
	}
	if err := c.update(ctxt, numeroEmpleado, fields); err != nil {
		return "", err
	}
	return result, nil
}
