package firestoredb

import (
	"fmt"
	"reflect"

	"github.com/smarter-day/restquery"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ToDocument converts a struct into a restquery.Document using the
// "firestore" tag for field names. Documents and maps pass through.
func ToDocument(model interface{}) (restquery.Document, error) {
	if doc, ok := model.(restquery.Document); ok {
		return doc, nil
	}
	v := reflect.ValueOf(model)
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return nil, fmt.Errorf("firestoredb: cannot convert %T to a document", model)
	}

	data := make(restquery.Document)
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		fieldDef := t.Field(i)
		firestoreTag := fieldDef.Tag.Get("firestore")
		if firestoreTag == "" || firestoreTag == "-" {
			continue
		}
		data[firestoreTag] = v.Field(i).Interface()
	}
	if id := idOf(v); id != "" {
		data[restquery.IDField] = id
	}
	return data, nil
}

func idOf(v reflect.Value) string {
	field := v.FieldByName("ID")
	if field.IsValid() && field.Kind() == reflect.String {
		return field.String()
	}
	return ""
}

// setIDField sets the "ID" field of a struct pointer, if it has one.
func setIDField(model interface{}, id string) {
	v := reflect.ValueOf(model)
	if v.Kind() != reflect.Ptr {
		return
	}
	v = v.Elem()
	if v.Kind() != reflect.Struct {
		return
	}
	field := v.FieldByName("ID")
	if field.IsValid() && field.CanSet() && field.Kind() == reflect.String {
		field.SetString(id)
	}
}

// IsNotFoundError reports whether err carries a NotFound or Unknown gRPC status.
func IsNotFoundError(err error) bool {
	if err == nil {
		return false
	}
	statusCode := status.Code(err)
	return statusCode == codes.NotFound || statusCode == codes.Unknown
}
