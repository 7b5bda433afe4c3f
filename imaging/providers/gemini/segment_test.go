package gemini

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paintbox-ai/paintbox/imaging"
)

func segmentTextResponse(text string) string {
	b, _ := json.Marshal(text)
	return `{"candidates": [{"content": {"parts": [{"text": ` + string(b) + `}]}}]}`
}

func TestSegment(t *testing.T) {
	masks := `[{"box_2d": [100, 200, 300, 400], "mask": "data:image/png;base64,bWFzaw==", "label": "cat"}]`

	var cap capture
	srv := newFakeUpstream(t, http.StatusOK, segmentTextResponse(masks), &cap)
	defer srv.Close()

	p := New(Config{APIKey: "k", BaseURL: srv.URL}, nil)
	result, err := p.Segment(context.Background(), &imaging.SegmentRequest{
		Image:  imaging.ImageBlob{MIMEType: "image/png", Data: "aW1n"},
		Target: "the cat",
	})
	require.NoError(t, err)

	// Segmentation goes through the text model, not the image model.
	assert.Equal(t, "/v1beta/models/gemini-2.5-flash:generateContent", cap.path)
	assert.Equal(t, "application/json", cap.body.GenerationConfig.ResponseMimeType)
	parts := cap.body.Contents[0].Parts
	require.Len(t, parts, 2)
	assert.Equal(t, "aW1n", parts[0].InlineData.Data)
	assert.Contains(t, parts[1].Text, `"the cat"`)
	assert.Contains(t, parts[1].Text, "box_2d")

	assert.Equal(t, "cat", result.Label)
	assert.Equal(t, imaging.BoundingBox{YMin: 100, XMin: 200, YMax: 300, XMax: 400}, result.Box)
	assert.Equal(t, "image/png", result.Mask.MIMEType)
	assert.Equal(t, "bWFzaw==", result.Mask.Data)
}

func TestSegment_MarkdownFenced(t *testing.T) {
	fenced := "```json\n[{\"box_2d\": [0, 0, 10, 10], \"mask\": \"bWFzaw==\", \"label\": \"dog\"}]\n```"
	srv := newFakeUpstream(t, http.StatusOK, segmentTextResponse(fenced), nil)
	defer srv.Close()

	p := New(Config{APIKey: "k", BaseURL: srv.URL}, nil)
	result, err := p.Segment(context.Background(), &imaging.SegmentRequest{
		Image:  imaging.ImageBlob{Data: "aW1n"},
		Target: "the dog",
	})
	require.NoError(t, err)
	assert.Equal(t, "dog", result.Label)
	// Bare base64 masks default to PNG.
	assert.Equal(t, "image/png", result.Mask.MIMEType)
}

func TestSegment_SingleObjectResponse(t *testing.T) {
	single := `{"box_2d": [1, 2, 3, 4], "mask": "bQ==", "label": "bird"}`
	srv := newFakeUpstream(t, http.StatusOK, segmentTextResponse(single), nil)
	defer srv.Close()

	p := New(Config{APIKey: "k", BaseURL: srv.URL}, nil)
	result, err := p.Segment(context.Background(), &imaging.SegmentRequest{
		Image:  imaging.ImageBlob{Data: "aW1n"},
		Target: "the bird",
	})
	require.NoError(t, err)
	assert.Equal(t, "bird", result.Label)
}

func TestSegment_EmptyResponse(t *testing.T) {
	srv := newFakeUpstream(t, http.StatusOK, `{"candidates": []}`, nil)
	defer srv.Close()

	p := New(Config{APIKey: "k", BaseURL: srv.URL}, nil)
	_, err := p.Segment(context.Background(), &imaging.SegmentRequest{
		Image:  imaging.ImageBlob{Data: "aW1n"},
		Target: "anything",
	})
	require.Error(t, err)
	assert.True(t, imaging.IsCode(err, imaging.ErrNoImageData))
}

func TestSegment_UnparseableResponse(t *testing.T) {
	srv := newFakeUpstream(t, http.StatusOK, segmentTextResponse("sorry, I cannot help with that"), nil)
	defer srv.Close()

	p := New(Config{APIKey: "k", BaseURL: srv.URL}, nil)
	_, err := p.Segment(context.Background(), &imaging.SegmentRequest{
		Image:  imaging.ImageBlob{Data: "aW1n"},
		Target: "anything",
	})
	require.Error(t, err)
	assert.True(t, imaging.IsCode(err, imaging.ErrUpstreamError))
	assert.True(t, imaging.IsRetryable(err))
}

func TestParseSegmentEntries(t *testing.T) {
	entries, err := parseSegmentEntries(`[{"box_2d":[1,2,3,4],"mask":"m","label":"l"}]`)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, [4]int{1, 2, 3, 4}, entries[0].Box2D)

	_, err = parseSegmentEntries("not json at all")
	assert.Error(t, err)
}
