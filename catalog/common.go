package catalog

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/apex/log"
	"github.com/colabnet/docwatch/common"
	"github.com/colabnet/docwatch/storage"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// Collection names
const (
	CollectionColaboradores    = "colaboradores"
	CollectionMicroempresarios = "microempresarios"
	CollectionIncentivos       = "incentivos"
	CollectionReferencias      = "referencias"
	CollectionRutas            = "rutas"
	CollectionZonas            = "zonas"
	CollectionAdministradores  = "administradores"
)

// Record one entity as presented to API callers: the stored fields plus the store document ID
// under "id"
type Record map[string]interface{}

// Clock source of the current time
type Clock func() time.Time

// collectionDef how one collection is addressed
type collectionDef struct {
	// name is the store collection
	name string
	// keyField is the business key field entities are looked up by
	keyField string
	// idPrefix is prepended to generated business IDs. Empty when callers supply the key.
	idPrefix string
}

// controller common operations of every collection controller
type controller struct {
	common.Component
	store    storage.DocumentStore
	def      collectionDef
	validate *validator.Validate
	now      Clock
}

func newController(
	store storage.DocumentStore, def collectionDef, validate *validator.Validate, now Clock,
) controller {
	logTags := log.Fields{
		"module": "catalog", "component": "controller", "instance": def.name,
	}
	return controller{
		Component: common.Component{LogTags: logTags},
		store:     store,
		def:       def,
		validate:  validate,
		now:       now,
	}
}

// newBusinessID generate a business ID of the form <prefix><8 hex chars>
func newBusinessID(prefix string) string {
	return prefix + strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

// today current date as YYYY-MM-DD
func (c controller) today() string {
	return common.FormatDate(c.now())
}

// checkInput validate a request structure
func (c controller) checkInput(request interface{}) error {
	if err := c.validate.Struct(request); err != nil {
		return common.NewInvalidInput(err)
	}
	return nil
}

// checkKey validate a business key taken from a caller
func (c controller) checkKey(key string) error {
	if err := c.validate.Var(key, "required,max=256"); err != nil {
		return common.NewInvalidInput(fmt.Errorf("invalid %s '%s': %w", c.def.keyField, key, err))
	}
	return nil
}

// List fetch every entity of the collection
func (c controller) List(ctxt context.Context) ([]Record, error) {
	docs, err := c.store.List(ctxt, c.def.name)
	if err != nil {
		log.WithError(err).WithFields(c.LogTags).Error("Failed to list entities")
		return nil, common.NewStoreFailure("list", c.def.name, err)
	}
	return toRecords(docs), nil
}

// find fetch all documents holding the business key. Returns common.ErrNotFound when there are
// none.
func (c controller) find(ctxt context.Context, key string) ([]storage.Document, error) {
	if err := c.checkKey(key); err != nil {
		return nil, err
	}
	docs, err := c.store.FindByField(ctxt, c.def.name, c.def.keyField, key)
	if err != nil {
		log.WithError(err).WithFields(c.LogTags).Errorf("Failed to query %s=%s", c.def.keyField, key)
		return nil, common.NewStoreFailure("query", c.def.name, err)
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("%s %s=%s: %w", c.def.name, c.def.keyField, key, common.ErrNotFound)
	}
	return docs, nil
}

// Get fetch the entity holding the business key
func (c controller) Get(ctxt context.Context, key string) (Record, error) {
	docs, err := c.find(ctxt, key)
	if err != nil {
		return nil, err
	}
	return Record(docs[0].Flatten()), nil
}

// create store a new entity. When the collection generates its business IDs the new ID is
// written into the key field.
func (c controller) create(ctxt context.Context, fields map[string]interface{}) (string, error) {
	key, _ := fields[c.def.keyField].(string)
	if c.def.idPrefix != "" {
		key = newBusinessID(c.def.idPrefix)
		fields[c.def.keyField] = key
	}
	doc, err := c.store.Add(ctxt, c.def.name, fields)
	if err != nil {
		log.WithError(err).WithFields(c.LogTags).Error("Failed to create entity")
		return "", common.NewStoreFailure("add", c.def.name, err)
	}
	log.WithFields(c.LogTags).Debugf("Created %s=%s as document %s", c.def.keyField, key, doc.ID)
	return key, nil
}

// apply merge fields into every document holding the business key
func (c controller) apply(ctxt context.Context, docs []storage.Document, fields map[string]interface{}) error {
	for _, doc := range docs {
		if err := c.store.Update(ctxt, c.def.name, doc.ID, fields); err != nil {
			log.WithError(err).WithFields(c.LogTags).Errorf("Failed to update document %s", doc.ID)
			return common.NewStoreFailure("update", c.def.name+"/"+doc.ID, err)
		}
	}
	return nil
}

// update merge fields into every document holding the business key
func (c controller) update(ctxt context.Context, key string, fields map[string]interface{}) error {
	docs, err := c.find(ctxt, key)
	if err != nil {
		return err
	}
	return c.apply(ctxt, docs, fields)
}

// Delete remove every document holding the business key
func (c controller) Delete(ctxt context.Context, key string) error {
	docs, err := c.find(ctxt, key)
	if err != nil {
		return err
	}
	for _, doc := range docs {
		if err := c.store.Delete(ctxt, c.def.name, doc.ID); err != nil {
			log.WithError(err).WithFields(c.LogTags).Errorf("Failed to delete document %s", doc.ID)
			return common.NewStoreFailure("delete", c.def.name+"/"+doc.ID, err)
		}
	}
	log.WithFields(c.LogTags).Debugf("Deleted %d entities with %s=%s", len(docs), c.def.keyField, key)
	return nil
}

// ByField fetch every entity whose field equals value
func (c controller) ByField(ctxt context.Context, field, value string) ([]Record, error) {
	docs, err := c.store.FindByField(ctxt, c.def.name, field, value)
	if err != nil {
		log.WithError(err).WithFields(c.LogTags).Errorf("Failed to query %s=%s", field, value)
		return nil, common.NewStoreFailure("query", c.def.name, err)
	}
	return toRecords(docs), nil
}

func toRecords(docs []storage.Document) []Record {
	result := make([]Record, 0, len(docs))
	for _, doc := range docs {
		result = append(result, Record(doc.Flatten()))
	}
	return result
}

// presentFields convert a partial update into fields, dropping every empty value. Update
// structures mark all members omitempty.
func presentFields(update interface{}) (map[string]interface{}, error) {
	fields, err := storage.ToFields(update)
	if err != nil {
		return nil, common.NewInvalidInput(err)
	}
	return fields, nil
}

// firstNonEmpty pick the update value unless it is empty
func firstNonEmpty(update, current string) string {
	if update != "" {
		return update
	}
	return current
}

// firstNonZero pick the update value unless it is zero
func firstNonZero(update, current float64) float64 {
	if update != 0 {
		return update
	}
	return current
}

// Catalog controllers of all collections
type Catalog struct {
	Colaboradores    Colaboradores
	Microempresarios Microempresarios
	Incentivos       Incentivos
	Referencias      Referencias
	Rutas            Rutas
	Zonas            Zonas
	Administradores  Administradores
}

// GetCatalog define the controllers of all collections on top of a document store
func GetCatalog(store storage.DocumentStore, now Clock) (*Catalog, error) {
	if store == nil {
		return nil, fmt.Errorf("no document store provided")
	}
	if now == nil {
		now = time.Now
	}
	validate := common.GetValidator()
	return &Catalog{
		Colaboradores: Colaboradores{newController(store, collectionDef{
			name: CollectionColaboradores, keyField: "numero_empleado",
		}, validate, now)},
		Microempresarios: Microempresarios{newController(store, collectionDef{
			name: CollectionMicroempresarios, keyField: "id_microempresario", idPrefix: "me",
		}, validate, now)},
		Incentivos: Incentivos{newController(store, collectionDef{
			name: CollectionIncentivos, keyField: "id_incentivo", idPrefix: "inc",
		}, validate, now)},
		Referencias: Referencias{newController(store, collectionDef{
			name: CollectionReferencias, keyField: "id_referencia", idPrefix: "ref",
		}, validate, now)},
		Rutas: Rutas{newController(store, collectionDef{
			name: CollectionRutas, keyField: "id_ruta", idPrefix: "rut",
		}, validate, now)},
		Zonas: Zonas{newController(store, collectionDef{
			name: CollectionZonas, keyField: "id_zona", idPrefix: "zon",
		}, validate, now)},
		Administradores: Administradores{newController(store, collectionDef{
			name: CollectionAdministradores, keyField: "id_admin", idPrefix: "admin",
		}, validate, now)},
	}, nil
}
