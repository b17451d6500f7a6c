package testing_util

import (
	"reflect"
	"runtime"
	"testing"
)

// Ok fails the test immediately if err is not nil, reporting the call site.
func Ok(t *testing.T, err error) {
	if err != nil {
		_, file, line, _ := runtime.Caller(1)
		t.Fatalf("%s:%d: unexpected error: %s", file, line, err.Error())
	}
}

// Equals fails the test if exp and act are not deeply equal.
func Equals(t *testing.T, exp, act interface{}) {
	if !reflect.DeepEqual(exp, act) {
		_, file, line, _ := runtime.Caller(1)
		t.Fatalf("%s:%d:\n\texp: %#v\n\tgot: %#v", file, line, exp, act)
	}
}
