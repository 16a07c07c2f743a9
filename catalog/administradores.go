package catalog

import "context"

// EstadoActivo state of a newly registered administrator
const EstadoActivo = "activo"

// NewAdministrador parameters for registering an administrator
type NewAdministrador struct {
	Nombre              string `json:"nombre" validate:"required"`
	Apellidos           string `json:"apellidos,omitempty"`
	CorreoInstitucional string `json:"correo_institucional" validate:"required,email"`
	NumeroEmpleado      string `json:"numero_empleado,omitempty"`
	RolAdmin            string `json:"rol_admin,omitempty"`
}

// AdministradorUpdate partial update of an administrator. Empty members are left unchanged.
type AdministradorUpdate struct {
	Nombre              string `json:"nombre,omitempty"`
	Apellidos           string `json:"apellidos,omitempty"`
	CorreoInstitucional string `json:"correo_institucional,omitempty" validate:"omitempty,email"`
	NumeroEmpleado      string `json:"numero_empleado,omitempty"`
	RolAdmin            string `json:"rol_admin,omitempty"`
	Estado              string `json:"estado,omitempty"`
}

// Administradores administrators, addressed by id_admin
type Administradores struct {
	controller
}

// Create register an active administrator, returning its generated ID
func (c Administradores) Create(ctxt context.Context, request NewAdministrador) (string, error) {
	if err := c.checkInput(&request); err != nil {
		return "", err
	}
	fields, err := presentFields(request)
	if err != nil {
		return "", err
	}
	fields["fecha_registro"] = c.today()
	fields["estado"] = EstadoActivo
	fields["registro_actividades"] = []interface{}{}
	return c.create(ctxt, fields)
}

// Update apply a partial update
func (c Administradores) Update(ctxt context.Context, id string, update AdministradorUpdate) error {
	if err := c.checkInput(&update); err != nil {
		return err
	}
	fields, err := presentFields(update)
	if err != nil {
		return err
	}
	return c.update(ctxt, id, fields)
}
