package environment

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"
)

var durationType = reflect.TypeOf(time.Duration(0))

// ParseEnvTags fills a struct from environment variables using struct tags.
//
// A field tagged env:"KEY" reads PREFIX_KEY. When the variable is unset the
// field keeps a value it already holds (from a config file) and otherwise
// takes its default:"..." tag; required:"true" fails instead. Untagged
// struct fields are walked with the same prefix.
func ParseEnvTags(prefix string, cfg any) error {
	v := reflect.ValueOf(cfg)
	if v.Kind() != reflect.Ptr || v.Elem().Kind() != reflect.Struct {
		return errors.New("cfg must be a pointer to a struct")
	}
	return parseStruct(prefix, v.Elem())
}

func parseStruct(prefix string, v reflect.Value) error {
	t := v.Type()
	for i := range v.NumField() {
		field := v.Field(i)
		fieldType := t.Field(i)
		if !field.CanSet() {
			continue
		}

		envKey := fieldType.Tag.Get("env")
		if envKey == "" {
			if field.Kind() == reflect.Struct && field.Type() != reflect.TypeOf(time.Time{}) {
				if err := parseStruct(prefix, field); err != nil {
					return fmt.Errorf("%s: %w", fieldType.Name, err)
				}
			}
			continue
		}

		ek := GetEnvKeyPrefix(prefix, envKey)
		value := os.Getenv(ek)
		if value == "" {
			if !field.IsZero() {
				continue
			}
			if fieldType.Tag.Get("required") == "true" {
				return fmt.Errorf("required environment variable %s is not set", ek)
			}
			value = fieldType.Tag.Get("default")
		}

		if err := setFieldValue(field, value, fieldType.Tag.Get("separator")); err != nil {
			return fmt.Errorf("error setting field %s: %w", fieldType.Name, err)
		}
	}
	return nil
}

// setFieldValue sets a reflect.Value based on its type
func setFieldValue(field reflect.Value, value, separator string) error {
	if value == "" {
		return nil // leave as zero value
	}
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int32, reflect.Int64:
		if field.Type() == durationType {
			duration, err := time.ParseDuration(value)
			if err != nil {
				return fmt.Errorf("cannot parse duration: %w", err)
			}
			field.SetInt(int64(duration))
			return nil
		}
		intVal, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return fmt.Errorf("cannot parse int: %w", err)
		}
		field.SetInt(intVal)

	case reflect.Float64:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("cannot parse float: %w", err)
		}
		field.SetFloat(f)

	case reflect.Bool:
		boolVal, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("cannot parse bool: %w", err)
		}
		field.SetBool(boolVal)

	case reflect.Slice:
		if field.Type().Elem().Kind() != reflect.String {
			return fmt.Errorf("unsupported slice type: %s", field.Type())
		}
		if separator == "" {
			separator = ","
		}
		parts := strings.Split(value, separator)
		out := reflect.MakeSlice(field.Type(), len(parts), len(parts))
		for i, part := range parts {
			out.Index(i).SetString(strings.TrimSpace(part))
		}
		field.Set(out)

	default:
		return fmt.Errorf("unsupported field type: %s", field.Kind())
	}

	return nil
}
