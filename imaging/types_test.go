package imaging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngBlob() ImageBlob {
	return ImageBlob{MIMEType: "image/png", Data: "aW1n"}
}

func TestGenerateRequest_Validate(t *testing.T) {
	tests := []struct {
		name    string
		req     GenerateRequest
		wantErr bool
	}{
		{
			name: "ok",
			req:  GenerateRequest{Prompt: "a fox"},
		},
		{
			name:    "empty prompt",
			req:     GenerateRequest{},
			wantErr: true,
		},
		{
			name: "two references ok",
			req: GenerateRequest{
				Prompt:     "a fox",
				References: []ImageBlob{pngBlob(), pngBlob()},
			},
		},
		{
			name: "three references rejected",
			req: GenerateRequest{
				Prompt:     "a fox",
				References: []ImageBlob{pngBlob(), pngBlob(), pngBlob()},
			},
			wantErr: true,
		},
		{
			name: "empty reference rejected",
			req: GenerateRequest{
				Prompt:     "a fox",
				References: []ImageBlob{{}},
			},
			wantErr: true,
		},
		{
			name:    "negative count rejected",
			req:     GenerateRequest{Prompt: "a fox", Count: -1},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, IsCode(err, ErrInvalidRequest))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestEditRequest_Validate(t *testing.T) {
	valid := EditRequest{Instruction: "make it blue", Image: pngBlob()}
	assert.NoError(t, valid.Validate())

	noInstr := EditRequest{Image: pngBlob()}
	assert.Error(t, noInstr.Validate())

	noImage := EditRequest{Instruction: "make it blue"}
	assert.Error(t, noImage.Validate())

	emptyMask := EditRequest{Instruction: "x", Image: pngBlob(), Mask: &ImageBlob{}}
	assert.Error(t, emptyMask.Validate())

	tooManyRefs := EditRequest{
		Instruction: "x",
		Image:       pngBlob(),
		References:  []ImageBlob{pngBlob(), pngBlob(), pngBlob()},
	}
	assert.Error(t, tooManyRefs.Validate())
}

func TestSegmentRequest_Validate(t *testing.T) {
	valid := SegmentRequest{Image: pngBlob(), Target: "the cat"}
	assert.NoError(t, valid.Validate())

	assert.Error(t, (&SegmentRequest{Target: "the cat"}).Validate())
	assert.Error(t, (&SegmentRequest{Image: pngBlob()}).Validate())
}

func TestImageBlob_DataURL(t *testing.T) {
	b := ImageBlob{MIMEType: "image/jpeg", Data: "aW1n"}
	assert.Equal(t, "data:image/jpeg;base64,aW1n", b.DataURL())
}

func TestBlobFromDataURL(t *testing.T) {
	b := BlobFromDataURL("data:image/png;base64,aW1n")
	assert.Equal(t, "image/png", b.MIMEType)
	assert.Equal(t, "aW1n", b.Data)

	// Raw base64 without a data URL prefix defaults to PNG.
	raw := BlobFromDataURL("aW1n")
	assert.Equal(t, "image/png", raw.MIMEType)
	assert.Equal(t, "aW1n", raw.Data)
}
