package handler

import (
	"context"
	"strconv"

	"github.com/mrjvadi/busrpc/bus"
	"github.com/mrjvadi/busrpc/errs"
	"github.com/mrjvadi/busrpc/params"
	"github.com/mrjvadi/busrpc/store"
)

// NewFunc builds a fresh, zero-valued entity. Generics can't express
// "new(T)" for an interface-constrained T when T is itself a pointer type,
// so the caller supplies the constructor — the concrete stand-in for the
// source's runtime-typed generic handler. CREATE and UPDATE decode the
// request data with params.ToObject, which allocates the entity itself;
// the value NewFunc returns is not used for decoding.
type NewFunc[T store.Entity] func() T

// CRUDHandler is a polymorphic handler bound to a (store, entity type,
// resource name) triple. Its Type is always DATA.
type CRUDHandler[T store.Entity] struct {
	resource string
	store    store.Store[T]
	newFn    NewFunc[T]
}

// NewCRUDHandler registers one instance per resource.
func NewCRUDHandler[T store.Entity](resource string, s store.Store[T], newFn NewFunc[T]) *CRUDHandler[T] {
	return &CRUDHandler[T]{resource: resource, store: s, newFn: newFn}
}

func (h *CRUDHandler[T]) Type() bus.Type   { return bus.TypeData }
func (h *CRUDHandler[T]) Resource() string { return h.resource }

func (h *CRUDHandler[T]) Handle(ctx context.Context, msg bus.BusMessage) (string, error) {
	switch msg.UpperAction() {
	case "CREATE":
		return h.create(ctx, msg)
	case "GET":
		return h.get(ctx, msg)
	case "LIST":
		return h.list(ctx)
	case "UPDATE":
		return h.update(ctx, msg)
	case "DELETE":
		return h.delete(ctx, msg)
	default:
		return "", actionNotImplemented(msg.Action)
	}
}

func (h *CRUDHandler[T]) create(ctx context.Context, msg bus.BusMessage) (string, error) {
	if msg.Data == nil || *msg.Data == "" {
		return "", errs.BadRequest("DATA_MANDATORY", "data is required for CREATE")
	}
	entity := h.newFn()
	decoded, err := params.ToObject[T](msg.Data)
	if err != nil {
		return "", err
	}
	entity = decoded

	created, err := h.store.Add(ctx, entity)
	if err != nil {
		return "", wrapStorageError(err)
	}
	if err := h.store.Save(ctx); err != nil {
		return "", wrapStorageError(err)
	}
	return strconv.FormatInt(created.GetID(), 10), nil
}

func (h *CRUDHandler[T]) get(ctx context.Context, msg bus.BusMessage) (string, error) {
	id, err := requireID(msg)
	if err != nil {
		return "", err
	}
	entity, err := h.store.FindByID(ctx, id)
	if err != nil {
		if err == store.ErrNotFound {
			return "", errs.NotFound("NOT_FOUND", "Cannot find ressource")
		}
		return "", wrapStorageError(err)
	}
	raw, err := jsonEncode(entity)
	if err != nil {
		return "", errs.Internal("SERIALIZATION_ERROR", "could not encode entity").WithDetails(err.Error())
	}
	return raw, nil
}

func (h *CRUDHandler[T]) list(ctx context.Context) (string, error) {
	all, err := h.store.Enumerate(ctx)
	if err != nil {
		return "", wrapStorageError(err)
	}
	raw, err := jsonEncode(all)
	if err != nil {
		return "", errs.Internal("SERIALIZATION_ERROR", "could not encode entities").WithDetails(err.Error())
	}
	return raw, nil
}

func (h *CRUDHandler[T]) update(ctx context.Context, msg bus.BusMessage) (string, error) {
	id, err := requireID(msg)
	if err != nil {
		return "", err
	}
	if msg.Data == nil || *msg.Data == "" {
		return "", errs.BadRequest("DATA_MANDATORY", "data is required for UPDATE")
	}
	entity, err := params.ToObject[T](msg.Data)
	if err != nil {
		return "", err
	}
	// The id on the envelope wins over whatever id the decoded body
	// happened to carry; the body id is informational only.
	entity.SetID(id)

	if err := h.store.Update(ctx, entity); err != nil {
		if err == store.ErrNotFound {
			return "", errs.NotFound("NOT_FOUND", "Cannot find ressource")
		}
		return "", wrapStorageError(err)
	}
	if err := h.store.Save(ctx); err != nil {
		return "", wrapStorageError(err)
	}
	return "true", nil
}

func (h *CRUDHandler[T]) delete(ctx context.Context, msg bus.BusMessage) (string, error) {
	id, err := requireID(msg)
	if err != nil {
		return "", err
	}
	// Load-then-remove so NotFound surfaces before any mutation.
	if _, err := h.store.FindByID(ctx, id); err != nil {
		if err == store.ErrNotFound {
			return "", errs.NotFound("NOT_FOUND", "Cannot find ressource")
		}
		return "", wrapStorageError(err)
	}
	if err := h.store.Remove(ctx, id); err != nil {
		if err == store.ErrNotFound {
			return "", errs.NotFound("NOT_FOUND", "Cannot find ressource")
		}
		return "", wrapStorageError(err)
	}
	if err := h.store.Save(ctx); err != nil {
		return "", wrapStorageError(err)
	}
	return "true", nil
}

func requireID(msg bus.BusMessage) (int64, error) {
	if msg.ID == nil {
		return 0, errs.BadRequest("ID_MANDATORY", "id is required")
	}
	return *msg.ID, nil
}

// wrapStorageError converts an opaque storage failure into the taxonomy,
// never letting the underlying error surface to the caller.
func wrapStorageError(err error) error {
	if ae, ok := errs.As(err); ok {
		return ae
	}
	return errs.Internal("STORAGE_ERROR", "storage operation failed").WithDetails(err.Error())
}
