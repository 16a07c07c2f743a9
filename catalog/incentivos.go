package catalog

import "context"

// NewIncentivo parameters for defining an incentive
type NewIncentivo struct {
	Titulo      string `json:"titulo" validate:"required"`
	Descripcion string `json:"descripcion" validate:"required"`
}

// Incentivos incentives collaborators can redeem, addressed by id_incentivo
type Incentivos struct {
	controller
}

// Create define an incentive, returning its generated ID
func (c Incentivos) Create(ctxt context.Context, request NewIncentivo) (string, error) {
	if err := c.checkInput(&request); err != nil {
		return "", err
	}
	fields, err := presentFields(request)
	if err != nil {
		return "", err
	}
	return c.create(ctxt, fields)
}
