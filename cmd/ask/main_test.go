package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAskRequiresQuestionAndCredentials(t *testing.T) {
	testCases := map[string][]string{
		"質問なし":   {"--shop", "demo.myshopify.com", "--token", "t"},
		"認証情報なし": {"what", "sold", "best?", "--shop", "", "--token", ""},
	}
	for name, args := range testCases {
		t.Run(name, func(t *testing.T) {
			var out bytes.Buffer
			rootCmd.SetOut(&out)
			rootCmd.SetErr(&out)
			rootCmd.SetArgs(args)
			assert.Error(t, rootCmd.Execute())
		})
	}
}
