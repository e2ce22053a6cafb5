package sqlitedb_test

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/jrazmi/growlog/core/schema"
	"github.com/jrazmi/growlog/infrastructure/sqlitedb"
)

func TestEncodeDecode(t *testing.T) {
	d := sqlitedb.Dialect{}
	at := time.Date(2024, 3, 1, 12, 0, 0, 5, time.FixedZone("CET", 3600))

	tests := []struct {
		name   string
		field  *schema.Field
		in     any
		stored any
		out    any
	}{
		{"datetime", &schema.Field{Name: "date", Kind: schema.KindDateTime}, at, "2024-03-01T11:00:00.000000005Z", at.UTC()},
		{"list", &schema.Field{Name: "nutrients", Kind: schema.KindString, List: true}, []string{"a", "b"}, `["a","b"]`, []string{"a", "b"}},
		{"empty list", &schema.Field{Name: "nutrients", Kind: schema.KindString, List: true}, []string{}, `[]`, []string{}},
		{"json", &schema.Field{Name: "data", Kind: schema.KindJSON}, json.RawMessage(`{"ec":1.2}`), `{"ec":1.2}`, json.RawMessage(`{"ec":1.2}`)},
		{"bool", &schema.Field{Name: "ok", Kind: schema.KindBool}, true, int64(1), true},
		{"float", &schema.Field{Name: "ph", Kind: schema.KindFloat}, 6.5, 6.5, 6.5},
		{"null", &schema.Field{Name: "ph", Kind: schema.KindFloat, Nullable: true}, nil, nil, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stored, err := d.Encode(tt.field, tt.in)
			if err != nil {
				t.Fatalf("encode: %v", err)
			}
			if !reflect.DeepEqual(stored, tt.stored) {
				t.Errorf("stored %#v, want %#v", stored, tt.stored)
			}
			out, err := d.Decode(tt.field, stored)
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if !reflect.DeepEqual(out, tt.out) {
				t.Errorf("decoded %#v, want %#v", out, tt.out)
			}
		})
	}
}

func TestDatetimesSortAsText(t *testing.T) {
	d := sqlitedb.Dialect{}
	f := &schema.Field{Name: "date", Kind: schema.KindDateTime}
	early, _ := d.Encode(f, time.Date(2024, 3, 1, 9, 59, 59, 999, time.UTC))
	late, _ := d.Encode(f, time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC))
	if strings.Compare(early.(string), late.(string)) >= 0 {
		t.Errorf("%s does not sort before %s", early, late)
	}
}

func TestDSN(t *testing.T) {
	dsn := sqlitedb.DSN(sqlitedb.Options{Path: "grow.db", BusyTimeout: 5 * time.Second, JournalMode: "WAL"})
	for _, want := range []string{"grow.db?", "foreign_keys", "busy_timeout", "journal_mode"} {
		if !strings.Contains(dsn, want) {
			t.Errorf("dsn %s lacks %s", dsn, want)
		}
	}
	if mem := sqlitedb.DSN(sqlitedb.Options{JournalMode: "WAL"}); strings.Contains(mem, "journal_mode") || !strings.HasPrefix(mem, ":memory:?") {
		t.Errorf("memory dsn %s", mem)
	}
}
