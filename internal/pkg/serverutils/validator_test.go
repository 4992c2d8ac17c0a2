package serverutils

import (
	"testing"

	"ecospectre-be/pkg/scan"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sampleRequest struct {
	Name  string  `json:"name" validate:"required"`
	Score float64 `json:"score" validate:"min=0,max=100"`
	Inner *struct {
		Value *int `json:"value" validate:"required"`
	} `json:"inner" validate:"required"`
}

func TestValidateRequestUsesJSONNames(t *testing.T) {
	req := sampleRequest{Score: 140}
	req.Inner = &struct {
		Value *int `json:"value" validate:"required"`
	}{}

	err := ValidateRequest(&req)

	var verr *scan.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{"name", "inner.value"}, verr.Missing)
	assert.Equal(t, []string{"score"}, verr.Invalid)
}

func TestValidateRequestPasses(t *testing.T) {
	v := 1
	req := sampleRequest{Name: "ok", Score: 50}
	req.Inner = &struct {
		Value *int `json:"value" validate:"required"`
	}{Value: &v}

	assert.NoError(t, ValidateRequest(&req))
}
