package goIAM

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/MrEthical07/goIAM/params"
	"github.com/MrEthical07/goIAM/store"
)

func parameterSnapshot(p *store.Parameter) map[string]any {
	if p == nil {
		return nil
	}
	return map[string]any{
		"key":      p.Key,
		"value":    p.Value,
		"category": p.Category,
		"dataType": p.DataType,
	}
}

// ListParameters returns stored parameters, optionally narrowed to one
// category.
func (e *Engine) ListParameters(ctx context.Context, category string) ([]*store.Parameter, error) {
	out, err := e.store.ListParameters(ctx, strings.ToLower(strings.TrimSpace(category)))
	if err != nil {
		return nil, mapStoreError(err)
	}
	return out, nil
}

// GetParameter returns the stored parameter for key. Keys that were never
// stored but have a built-in default resolve to that default.
func (e *Engine) GetParameter(ctx context.Context, key string) (*store.Parameter, error) {
	key = store.NormalizeParameterKey(key)
	if key == "" {
		return nil, fmt.Errorf("%w: key is required", ErrValidation)
	}
	p, err := e.store.GetParameter(ctx, key)
	if errors.Is(err, store.ErrNotFound) {
		for _, d := range params.Defaults() {
			if d.Key == key {
				return &d, nil
			}
		}
	}
	if err != nil {
		return nil, mapStoreError(err)
	}
	return p, nil
}

// PutParameter describes the putparameter operation and its observable behavior.
//
// PutParameter upserts key. Category, data type and description are kept
// from the stored record (or the built-in default) when the input leaves
// them empty. The value is checked against the data type and the cache
// entry is invalidated so the next read sees the write.
// PutParameter may return an error when input validation, dependency calls, or security checks fail.
func (e *Engine) PutParameter(ctx context.Context, key string, in ParameterInput) (*store.Parameter, error) {
	key = store.NormalizeParameterKey(key)
	if key == "" {
		return nil, fmt.Errorf("%w: key is required", ErrValidation)
	}

	var before *store.Parameter
	base, err := e.store.GetParameter(ctx, key)
	switch {
	case err == nil:
		before = base
	case errors.Is(err, store.ErrNotFound):
		base = &store.Parameter{Key: key, Category: store.CategoryGeneral, DataType: store.DataTypeString}
		for _, d := range params.Defaults() {
			if d.Key == key {
				base = &d
				break
			}
		}
	default:
		return nil, mapStoreError(err)
	}

	next := *base
	next.Value = strings.TrimSpace(in.Value)
	if v := strings.TrimSpace(in.Description); v != "" {
		next.Description = v
	}
	if v := strings.ToLower(strings.TrimSpace(in.Category)); v != "" {
		next.Category = v
	}
	if v := strings.ToLower(strings.TrimSpace(in.DataType)); v != "" {
		next.DataType = v
	}
	if err := params.ValidateValue(next.DataType, next.Value); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	next.UpdatedBy = actorFromContext(ctx)
	next.UpdatedAt = e.now().UTC()

	if err := e.store.UpsertParameter(ctx, &next); err != nil {
		err = mapStoreError(err)
		e.emitAdmin(ctx, auditEventParameterUpdate, key, parameterSnapshot(before), nil, err)
		return nil, err
	}
	e.params.Invalidate(key)
	e.emitAdmin(ctx, auditEventParameterUpdate, key, parameterSnapshot(before), parameterSnapshot(&next), nil)
	return &next, nil
}

// DeleteParameter removes key. Reads fall back to the built-in default.
func (e *Engine) DeleteParameter(ctx context.Context, key string) error {
	key = store.NormalizeParameterKey(key)
	if key == "" {
		return fmt.Errorf("%w: key is required", ErrValidation)
	}
	err := mapStoreError(e.store.DeleteParameter(ctx, key))
	if err == nil {
		e.params.Invalidate(key)
	}
	e.emitAdmin(ctx, auditEventParameterDelete, key, nil, nil, err)
	return err
}
