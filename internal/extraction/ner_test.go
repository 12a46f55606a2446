package extraction

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type stubRecognizer struct {
	orgs []string
	err  error
}

func (s stubRecognizer) Organizations(string) ([]string, error) { return s.orgs, s.err }

func TestVendorFromEntities(t *testing.T) {
	text := "ACME STORES PVT LTD\n123 Long Street, Springfield\nTOTAL 10.00"

	tests := []struct {
		name string
		rec  stubRecognizer
		want string
	}{
		{"shortest candidate wins", stubRecognizer{orgs: []string{"ACME STORES PVT LTD", "ACME"}}, "ACME"},
		{"short spans filtered", stubRecognizer{orgs: []string{"A", "OK", "TESCO"}}, "TESCO"},
		{"no candidates", stubRecognizer{orgs: nil}, ""},
		{"recognizer failure is silent", stubRecognizer{err: errors.New("model missing")}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, VendorFromEntities(tt.rec, text, nil))
		})
	}
}

func TestVendorFromEntitiesShortTextSkipped(t *testing.T) {
	rec := stubRecognizer{orgs: []string{"TESCO"}}
	assert.Empty(t, VendorFromEntities(rec, "hi", nil))
}

func TestNERStageFillsVendorOnly(t *testing.T) {
	stage := NERStage{Recognizer: stubRecognizer{orgs: []string{"TESCO"}}}
	assert.Equal(t, []Field{FieldVendorName}, stage.Fields())

	partial, err := stage.Run(nil, "a receipt with enough text", nil)
	assert.NoError(t, err)
	assert.Equal(t, "TESCO", partial.VendorName)
}
