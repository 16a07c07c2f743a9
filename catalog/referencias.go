package catalog

import (
	"context"

	"github.com/apex/log"
)

// EstadoPendiente initial state of every referral
const EstadoPendiente = "pendiente"

// NewReferencia parameters for a collaborator referring a micro-entrepreneur
type NewReferencia struct {
	IDColaborador     string `json:"id_colaborador" validate:"required"`
	IDMicroempresario string `json:"id_microempresario" validate:"required"`
}

// ReferenciaUpdate state change of a referral
type ReferenciaUpdate struct {
	EstadoReferencia string `json:"estado_referencia" validate:"required"`
}

// EstadoHistorial one entry of a referral's state history
type EstadoHistorial struct {
	Estado string `json:"estado"`
	Fecha  string `json:"fecha"`
}

// Referencias referrals, addressed by id_referencia
type Referencias struct {
	controller
}

// Create record a pending referral, returning its generated ID
func (c Referencias) Create(ctxt context.Context, request NewReferencia) (string, error) {
	if err := c.checkInput(&request); err != nil {
		return "", err
	}
	fields, err := presentFields(request)
	if err != nil {
		return "", err
	}
	today := c.today()
	fields["estado_referencia"] = EstadoPendiente
	fields["fecha_referencia"] = today
	fields["historial_estados"] = []interface{}{
		map[string]interface{}{"estado": EstadoPendiente, "fecha": today},
	}
	return c.create(ctxt, fields)
}

// UpdateState move the referral to a new state and append the change to its history
func (c Referencias) UpdateState(ctxt context.Context, id string, update ReferenciaUpdate) error {
	if err := c.checkInput(&update); err != nil {
		return err
	}
	docs, err := c.find(ctxt, id)
	if err != nil {
		return err
	}
	var current struct {
		Historial []EstadoHistorial `json:"historial_estados"`
	}
	if err := docs[0].Decode(&current); err != nil {
		return err
	}
	historial := make([]interface{}, 0, len(current.Historial)+1)
	for _, entry := range current.Historial {
		historial = append(historial, map[string]interface{}{"estado": entry.Estado, "fecha": entry.Fecha})
	}
	historial = append(historial, map[string]interface{}{
		"estado": update.EstadoReferencia, "fecha": c.today(),
	})
	log.WithFields(c.LogTags).Debugf("Referral %s moves to %s", id, update.EstadoReferencia)
	return c.apply(ctxt, docs[:1], map[string]interface{}{
		"estado_referencia": update.EstadoReferencia,
		"historial_estados": historial,
	})
}
