package filter

import (
	"testing"

	"github.com/gyaneshwarpardhi/auditflow/internal/event"
)

func rec(kv ...interface{}) event.Record {
	r := make(event.Record)
	for i := 0; i < len(kv)-1; i += 2 {
		r[kv[i].(string)] = kv[i+1]
	}
	return r
}

type matchCase struct {
	name string
	expr string
	rec  event.Record
	want bool
}

func TestMatch(t *testing.T) {
	cases := []matchCase{
		{
			name: "string equality true",
			expr: `action == "user_login"`,
			rec:  rec("action", "user_login"),
			want: true,
		},
		{
			name: "string equality false",
			expr: `action == "user_login"`,
			rec:  rec("action", "user_logout"),
			want: false,
		},
		{
			name: "inequality",
			expr: `action != "user_login"`,
			rec:  rec("action", "user_logout"),
			want: true,
		},
		{
			name: "numeric comparison",
			expr: "duration > 30",
			rec:  rec("duration", float64(45)),
			want: true,
		},
		{
			name: "numeric gte boundary",
			expr: "duration >= 45",
			rec:  rec("duration", float64(45)),
			want: true,
		},
		{
			name: "contains",
			expr: `action contains "login"`,
			rec:  rec("action", "user_login"),
			want: true,
		},
		{
			name: "matches regexp",
			expr: `action matches "^user_"`,
			rec:  rec("action", "user_login"),
			want: true,
		},
		{
			name: "and short-circuit",
			expr: `action contains "login" AND duration > 10`,
			rec:  rec("action", "user_login", "duration", float64(5)),
			want: false,
		},
		{
			name: "or",
			expr: `action == "a" OR action == "b"`,
			rec:  rec("action", "b"),
			want: true,
		},
		{
			name: "not",
			expr: `NOT action == "a"`,
			rec:  rec("action", "b"),
			want: true,
		},
		{
			name: "parentheses",
			expr: `(action == "a" OR action == "b") AND duration < 10`,
			rec:  rec("action", "b", "duration", float64(3)),
			want: true,
		},
		{
			name: "nested actor path",
			expr: `actor.user == "alice"`,
			rec:  rec("actor", map[string]string{"user": "alice"}),
			want: true,
		},
		{
			name: "absent field is false",
			expr: `missing == "x"`,
			rec:  rec("action", "y"),
			want: false,
		},
		{
			name: "absent field under NOT is true",
			expr: `NOT missing == "x"`,
			rec:  rec("action", "y"),
			want: true,
		},
		{
			name: "boolean literal",
			expr: "admin == true",
			rec:  rec("admin", true),
			want: true,
		},
		{
			name: "case-insensitive keywords",
			expr: `action == "a" or action == "b"`,
			rec:  rec("action", "a"),
			want: true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f, err := Compile(tc.expr)
			if err != nil {
				t.Fatalf("Compile(%q): %v", tc.expr, err)
			}
			if got := f.Match(tc.rec); got != tc.want {
				t.Errorf("Match(%q) = %v, want %v", tc.expr, got, tc.want)
			}
		})
	}
}

func TestCompileErrors(t *testing.T) {
	cases := []struct {
		name string
		expr string
	}{
		{"empty", ""},
		{"missing operand", `action ==`},
		{"missing operator", `action "login"`},
		{"unterminated string", `action == "login`},
		{"unbalanced paren", `(action == "a"`},
		{"bad regexp", `action matches "["`},
		{"trailing garbage", `action == "a" action`},
		{"literal on left", `"a" == action`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Compile(tc.expr); err == nil {
				t.Errorf("Compile(%q) should fail", tc.expr)
			}
		})
	}
}
