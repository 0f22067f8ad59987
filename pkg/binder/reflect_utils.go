package binder

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// bindToStruct assigns values to the fields of the struct v points to,
// resolving each field's parameter name from tagName.
func bindToStruct(v any, tagName string, values map[string][]string, bindErr error) error {
	rv, err := structValue(v)
	if err != nil {
		return fmt.Errorf("%w: %v", bindErr, err)
	}

	rt := rv.Type()
	for i := range rv.NumField() {
		field := rv.Field(i)
		if !field.CanSet() {
			continue
		}
		name, skip := parseFieldTag(rt.Field(i), tagName)
		if skip {
			continue
		}
		fieldValues := values[name]
		if len(fieldValues) == 0 {
			continue
		}
		if err := setFieldValue(field, fieldValues[0]); err != nil {
			return fmt.Errorf("%w: %s: %v", bindErr, name, err)
		}
	}
	return nil
}

// tagNames lists the parameter names a struct declares for tagName.
func tagNames(v any, tagName string) []string {
	rv, err := structValue(v)
	if err != nil {
		return nil
	}
	rt := rv.Type()
	names := make([]string, 0, rt.NumField())
	for i := range rt.NumField() {
		if !rt.Field(i).IsExported() {
			continue
		}
		if name, skip := parseFieldTag(rt.Field(i), tagName); !skip {
			names = append(names, name)
		}
	}
	return names
}

func structValue(v any) (reflect.Value, error) {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return reflect.Value{}, fmt.Errorf("target must be a non-nil pointer")
	}
	rv = rv.Elem()
	if rv.Kind() != reflect.Struct {
		return reflect.Value{}, fmt.Errorf("target must be a pointer to struct")
	}
	return rv, nil
}

func parseFieldTag(field reflect.StructField, tagName string) (name string, skip bool) {
	tag := field.Tag.Get(tagName)
	switch tag {
	case "":
		return strings.ToLower(field.Name), false
	case "-":
		return "", true
	}
	name, _, _ = strings.Cut(tag, ",")
	return name, false
}

func setFieldValue(field reflect.Value, value string) error {
	if field.Kind() == reflect.Pointer {
		if field.IsNil() {
			field.Set(reflect.New(field.Type().Elem()))
		}
		return setFieldValue(field.Elem(), value)
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(value, 10, field.Type().Bits())
		if err != nil {
			return fmt.Errorf("invalid int value %q", value)
		}
		field.SetInt(n)

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(value, 10, field.Type().Bits())
		if err != nil {
			return fmt.Errorf("invalid uint value %q", value)
		}
		field.SetUint(n)

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			switch strings.ToLower(value) {
			case "on", "yes":
				b = true
			case "off", "no":
				b = false
			default:
				return fmt.Errorf("invalid bool value %q", value)
			}
		}
		field.SetBool(b)

	default:
		return fmt.Errorf("unsupported type %s", field.Kind())
	}
	return nil
}
