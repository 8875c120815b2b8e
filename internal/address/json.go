// Package address composes the JSON address descriptor that the pipeline
// stores per object (spec.md §3, §4.5), grounded on the original
// generator's AddAddress/UpdateCoordinates/MakeJsonValueWithNameFromFeature
// (generator/geo_objects/geo_objects.cpp).
package address

import (
	"encoding/json"
	"fmt"
)

// JSON is the descriptor tree. It is represented as a plain
// map[string]interface{}/[]interface{} tree (the same shape encoding/json
// produces from Unmarshal) rather than a typed struct, because the
// building-address field needs to distinguish "set to null" from "key
// absent" (spec.md §3), which a tree of interface{} values expresses
// directly: a present key with a nil value versus no key at all.
type JSON map[string]interface{}

// HouseOrPOIRank is the canonical rank written to every composed address
// (spec.md §4.5's "rank 30").
const HouseOrPOIRank = 30

// NullBuilding is the sentinel written to address.building when a feature
// has no house number. It is distinct from the key being absent.
var NullBuilding interface{} = nil

// DeepCopy returns a structurally independent copy of j, so that grafting
// fields onto a composed address never mutates the region's shared
// descriptor (the original's MakeDeepCopyJson).
func (j JSON) DeepCopy() JSON {
	return deepCopyValue(map[string]interface{}(j)).(map[string]interface{})
}

func deepCopyValue(v interface{}) interface{} {
	switch vv := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(vv))
		for k, val := range vv {
			out[k] = deepCopyValue(val)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(vv))
		for i, val := range vv {
			out[i] = deepCopyValue(val)
		}
		return out
	default:
		return v
	}
}

// Parse decodes a compact JSON document into a JSON tree.
func Parse(data []byte) (JSON, error) {
	var v map[string]interface{}
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("parse address json: %w", err)
	}
	return JSON(v), nil
}

// Marshal serializes j as compact JSON, matching spec.md §6.6's output
// format (one compact JSON document per KV line).
func (j JSON) Marshal() ([]byte, error) {
	return json.Marshal(map[string]interface{}(j))
}

// ensureObjectAt walks a dotted path of map keys, creating intermediate
// maps as needed, and returns the map at the end of the path. Used when
// composing an address (a write path) to reach
// properties.locales.default.address without repeating the descent at
// every call site. SchemaError covers the case where an existing key on
// the path is present but not itself an object.
func ensureObjectAt(root JSON, path ...string) (map[string]interface{}, error) {
	cur := map[string]interface{}(root)
	for i, key := range path {
		next, ok := cur[key]
		if !ok {
			m := make(map[string]interface{})
			cur[key] = m
			cur = m
			continue
		}
		m, ok := next.(map[string]interface{})
		if !ok {
			return nil, &SchemaError{Path: path[:i+1]}
		}
		cur = m
	}
	return cur, nil
}

// lookupObjectAt walks a dotted path of map keys without mutating root,
// returning ok=false if any segment is missing or not itself an object.
// Used by read-only predicates like HasBuilding, which must never create
// the very structure they are testing for.
func lookupObjectAt(root JSON, path ...string) (obj map[string]interface{}, ok bool) {
	cur := map[string]interface{}(root)
	for _, key := range path {
		next, present := cur[key]
		if !present {
			return nil, false
		}
		m, isMap := next.(map[string]interface{})
		if !isMap {
			return nil, false
		}
		cur = m
	}
	return cur, true
}

// SchemaError indicates a region JSON descriptor lacks a required object
// at the given path (spec.md §7: fatal, indicates an upstream generator bug).
type SchemaError struct {
	Path []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("address json missing required object at %v", e.Path)
}

// HasBuilding is the predicate spec.md §4.5 names: the address.building
// field is present and not the null sentinel. Used by pass 2/4 as the
// spatial-index candidate filter.
func HasBuilding(j JSON) bool {
	address, ok := lookupObjectAt(j, "properties", "locales", "default", "address")
	if !ok {
		return false
	}
	building, present := address["building"]
	return present && building != nil
}

// AdminLevel reads properties.admin_level from a region descriptor, used
// by internal/regions to break ties between overlapping regions (spec.md
// §4.3's "deepest ... ties broken by larger admin-level number"). JSON
// numbers decode to float64 regardless of source precision.
func AdminLevel(j JSON) (int, bool) {
	props, ok := j["properties"].(map[string]interface{})
	if !ok {
		return 0, false
	}
	switch v := props["admin_level"].(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	default:
		return 0, false
	}
}
