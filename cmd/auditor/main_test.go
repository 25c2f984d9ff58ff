package main

import (
	"os"
	"testing"
)

func TestMain_Help(t *testing.T) {
	old := os.Args
	defer func() { os.Args = old }()
	os.Args = []string{"auditor", "--help"}
	main()
}
