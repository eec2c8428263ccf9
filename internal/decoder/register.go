package decoder

import (
	"github.com/wrt-go/wrt/internal/types"
	"github.com/wrt-go/wrt/internal/valuestore"
)

// RegisterTypeSection decodes a core module Type section payload and
// registers each function type it declares with reg. It returns one
// TypeRef per declared function type, in declaration order — the
// "component registration path" of spec.md §4.4: "Component types
// encountered during decode are classified ... and registered with the
// Type Registry. Each registration returns a TypeRef that subsequent
// sections may reference."
func RegisterTypeSection(payload Payload, reg *types.Registry) ([]types.TypeRef, error) {
	entries, err := decodeTypeSection(payload.Bytes)
	if err != nil {
		return nil, err
	}

	refs := make([]types.TypeRef, len(entries))
	for i, entry := range entries {
		params, err := registerScalarRefs(entry.Params, reg)
		if err != nil {
			return nil, err
		}
		results, err := registerScalarRefs(entry.Results, reg)
		if err != nil {
			return nil, err
		}
		ref, err := reg.Register(types.ComponentType{
			Kind:     types.KindFunction,
			Function: types.FunctionType{Params: params, Results: results},
		})
		if err != nil {
			return nil, err
		}
		refs[i] = ref
	}
	return refs, nil
}

// registerScalarRefs registers one types.ComponentType (KindValue) per
// scalar Kind, returning each type's TypeRef in order. Register's
// structural-equality dedup means repeated scalar kinds across many
// function types collapse onto the same TypeRef.
func registerScalarRefs(kinds []valuestore.Kind, reg *types.Registry) ([]types.TypeRef, error) {
	refs := make([]types.TypeRef, len(kinds))
	for i, kind := range kinds {
		ref, err := reg.Register(types.ComponentType{
			Kind:  types.KindValue,
			Value: valuestore.ValType{Kind: kind},
		})
		if err != nil {
			return nil, err
		}
		refs[i] = ref
	}
	return refs, nil
}
