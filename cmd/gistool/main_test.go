package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMissingFlagsPrintUsage(t *testing.T) {
	buf := &bytes.Buffer{}
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{})

	err := rootCmd.Execute()
	assert.Error(t, err)
	assert.Contains(t, buf.String(), "required flag")
	assert.Contains(t, buf.String(), "Usage:")
}
