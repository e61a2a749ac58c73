package model

import (
	"encoding/json"
	"errors"
	"math"
	"reflect"
	"testing"
)

func rawPatch(t *testing.T, s string) map[string]json.RawMessage {
	t.Helper()
	var m map[string]json.RawMessage
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		t.Fatalf("bad test patch: %v", err)
	}
	return m
}

func TestAccountInfoMerge(t *testing.T) {
	info := DefaultAccountInfo()

	dropped, err := info.Merge(rawPatch(t, `{"level": 5, "nonsense_key": "x", "zzz": 1, "premium": true, "picture": null}`))
	if err != nil {
		t.Fatalf("Merge() error = %v", err)
	}
	if !reflect.DeepEqual(dropped, []string{"nonsense_key", "zzz"}) {
		t.Errorf("dropped = %v", dropped)
	}
	if info.Level == nil || *info.Level != 5 {
		t.Errorf("level = %v, want 5", info.Level)
	}
	if info.Premium == nil || !*info.Premium {
		t.Errorf("premium = %v, want true", info.Premium)
	}
	if info.PointsOrZero() != 0 {
		t.Errorf("untouched points changed to %d", info.PointsOrZero())
	}
}

func TestAccountInfoMerge_Values(t *testing.T) {
	tests := []struct {
		name    string
		patch   string
		want    *int64
		wantErr bool
	}{
		{"integer", `{"points": 42}`, ptr(42), false},
		{"negative", `{"points": -3}`, ptr(-3), false},
		{"integral float", `{"points": 7.0}`, ptr(7), false},
		{"exponent", `{"points": 1e2}`, ptr(100), false},
		{"null clears", `{"points": null}`, nil, false},
		{"fraction", `{"points": 1.5}`, nil, true},
		{"numeric string", `{"points": "5"}`, nil, true},
		{"bool", `{"points": true}`, nil, true},
		{"object", `{"points": {}}`, nil, true},
		{"max int64", `{"points": 9223372036854775807}`, ptr(math.MaxInt64), false},
		{"min int64", `{"points": -9223372036854775808}`, ptr(math.MinInt64), false},
		{"two to the 63", `{"points": 9223372036854775808}`, nil, true},
		{"below min int64", `{"points": -9223372036854775809}`, nil, true},
		{"two to the 63 as float", `{"points": 9.223372036854775808e18}`, nil, true},
		{"min int64 as float", `{"points": -9.223372036854775808e18}`, ptr(math.MinInt64), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := DefaultAccountInfo()
			before := info
			_, err := info.Merge(rawPatch(t, tt.patch))
			if tt.wantErr {
				var fe *FieldError
				if !errors.As(err, &fe) || fe.Field != "points" {
					t.Fatalf("Merge() error = %v, want FieldError on points", err)
				}
				if !reflect.DeepEqual(info, before) {
					t.Error("failed merge modified the receiver")
				}
				return
			}
			if err != nil {
				t.Fatalf("Merge() error = %v", err)
			}
			if !reflect.DeepEqual(info.Points, tt.want) {
				t.Errorf("points = %v, want %v", deref(info.Points), deref(tt.want))
			}
		})
	}
}

func TestAccountInfoMerge_Atomic(t *testing.T) {
	info := DefaultAccountInfo()
	// "days" sorts before "points"; its valid value must not survive the
	// failure on points.
	_, err := info.Merge(rawPatch(t, `{"days": 9, "points": "lots"}`))
	if err == nil {
		t.Fatal("Merge() should fail")
	}
	if info.DaysOrZero() != 0 {
		t.Errorf("days = %d after a failed merge", info.DaysOrZero())
	}
}

func TestAccountInfoUnmarshal_Lenient(t *testing.T) {
	var info AccountInfo
	if err := json.Unmarshal([]byte(`{"points": "lots", "days": 4, "extra": 1}`), &info); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if info.Points != nil || info.DaysOrZero() != 4 {
		t.Errorf("info = points %v, days %d", info.Points, info.DaysOrZero())
	}

	for _, bad := range []string{`[1,2]`, `"text"`, `null`, `{`} {
		var info AccountInfo
		if err := json.Unmarshal([]byte(bad), &info); err == nil {
			t.Errorf("Unmarshal(%s) should fail", bad)
		}
	}
}

func TestAccountInfoMarshal_AllKeys(t *testing.T) {
	buf, err := json.Marshal(DefaultAccountInfo())
	if err != nil {
		t.Fatal(err)
	}
	var m map[string]any
	_ = json.Unmarshal(buf, &m)
	for _, k := range AccountInfoKeys {
		if _, ok := m[k]; !ok {
			t.Errorf("marshalled account info lacks %q", k)
		}
	}
	if len(m) != len(AccountInfoKeys) {
		t.Errorf("marshalled %d keys, want %d", len(m), len(AccountInfoKeys))
	}
}

func ptr(v int64) *int64 { return &v }
