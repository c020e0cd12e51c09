package multipart

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chunksOfSize(body []byte, size int) [][]byte {
	var chunks [][]byte
	for i := 0; i < len(body); i += size {
		end := i + size
		if end > len(body) {
			end = len(body)
		}
		chunks = append(chunks, body[i:end])
	}
	return chunks
}

// ============================================================================
// Multipart.NextPart — basic iteration (spec §8, S1)
// ============================================================================

func TestMultipart_S1_BasicTextField(t *testing.T) {
	t.Parallel()

	body := []byte("--X\r\nContent-Disposition: form-data; name=\"a\"\r\n\r\nhello\r\n--X--\r\n")
	mp, err := NewMultipart([]byte("X"), NewSliceSource(body), WithSelector(SelectorAny()))
	require.NoError(t, err)

	ctx := context.Background()
	part, err := mp.NextPart(ctx)
	require.NoError(t, err)
	assert.Equal(t, "a", part.FieldName())
	assert.False(t, part.IsFile())

	text, err := part.Text(ctx)
	require.NoError(t, err)
	assert.Equal(t, "hello", text)

	_, err = mp.NextPart(ctx)
	assert.Equal(t, io.EOF, err)
}

// ============================================================================
// Multipart.NextPart — file + text (spec §8, S2)
// ============================================================================

func TestMultipart_S2_FileAndText(t *testing.T) {
	t.Parallel()

	body := []byte("--B\r\n" +
		"Content-Disposition: form-data; name=\"meta\"\r\n\r\nv1\r\n--B\r\n" +
		"Content-Disposition: form-data; name=\"file\"; filename=\"t.txt\"\r\n\r\nabc\r\n--B--\r\n")

	mp, err := NewMultipart([]byte("B"), NewSliceSource(body), WithSelector(SelectorAny()))
	require.NoError(t, err)
	ctx := context.Background()

	p1, err := mp.NextPart(ctx)
	require.NoError(t, err)
	assert.Equal(t, "meta", p1.FieldName())
	v, err := p1.Text(ctx)
	require.NoError(t, err)
	assert.Equal(t, "v1", v)

	p2, err := mp.NextPart(ctx)
	require.NoError(t, err)
	assert.Equal(t, "file", p2.FieldName())
	require.NotNil(t, p2.FileName())
	assert.Equal(t, "t.txt", *p2.FileName())
	b, err := p2.Bytes(ctx)
	require.NoError(t, err)
	assert.Equal(t, "abc", string(b))

	_, err = mp.NextPart(ctx)
	assert.Equal(t, io.EOF, err)
}

// ============================================================================
// Multipart.NextPart — chunk-shape independence (spec §8, S3)
// ============================================================================

func TestMultipart_S3_ChunkSplitBoundary(t *testing.T) {
	t.Parallel()

	body := []byte("--B\r\n" +
		"Content-Disposition: form-data; name=\"meta\"\r\n\r\nv1\r\n--B\r\n" +
		"Content-Disposition: form-data; name=\"file\"; filename=\"t.txt\"\r\n\r\nabc\r\n--B--\r\n")

	chunks := chunksOfSize(body, 1)
	mp, err := NewMultipart([]byte("B"), NewSliceSource(chunks...), WithSelector(SelectorAny()))
	require.NoError(t, err)
	ctx := context.Background()

	p1, err := mp.NextPart(ctx)
	require.NoError(t, err)
	v, err := p1.Text(ctx)
	require.NoError(t, err)
	assert.Equal(t, "v1", v)

	p2, err := mp.NextPart(ctx)
	require.NoError(t, err)
	b, err := p2.Bytes(ctx)
	require.NoError(t, err)
	assert.Equal(t, "abc", string(b))

	_, err = mp.NextPart(ctx)
	assert.Equal(t, io.EOF, err)
}

// ============================================================================
// Multipart.NextPart — oversize file (spec §8, S4)
// ============================================================================

func TestMultipart_S4_FileTooLarge(t *testing.T) {
	t.Parallel()

	body := []byte("--B\r\nContent-Disposition: form-data; name=\"file\"; filename=\"t.txt\"\r\n\r\nabcdef\r\n--B--\r\n")
	mp, err := NewMultipart([]byte("B"), NewSliceSource(body), WithSelector(SelectorAny()), WithMaxFileSize(4))
	require.NoError(t, err)
	ctx := context.Background()

	part, err := mp.NextPart(ctx)
	require.NoError(t, err)

	_, err = part.Bytes(ctx)
	require.Error(t, err)
	assert.True(t, IsFileTooLarge(err))
}

// ============================================================================
// Multipart.NextPart — unexpected field rejected (spec §8, S5)
// ============================================================================

func TestMultipart_S5_UnexpectedFieldRejected(t *testing.T) {
	t.Parallel()

	body := []byte("--B\r\nContent-Disposition: form-data; name=\"other\"; filename=\"x\"\r\n\r\ndata\r\n--B--\r\n")
	mp, err := NewMultipart(
		[]byte("B"), NewSliceSource(body),
		WithSelector(SelectorFields(Field{Name: "avatar", Kind: FieldKindFile, MaxCount: 1})),
		WithUnknownFieldPolicy(UnknownFieldReject),
	)
	require.NoError(t, err)

	_, err = mp.NextPart(context.Background())
	require.Error(t, err)
	assert.True(t, IsUnexpectedField(err) || IsUnexpectedFile(err))
}

// ============================================================================
// Multipart.NextPart — incomplete stream (spec §8, S7)
// ============================================================================

func TestMultipart_S7_IncompleteMultipart(t *testing.T) {
	t.Parallel()

	body := []byte("--X\r\nContent-Disposition: form-data; name=\"a\"\r\n\r\nhello")
	mp, err := NewMultipart([]byte("X"), NewSliceSource(body), WithSelector(SelectorAny()))
	require.NoError(t, err)
	ctx := context.Background()

	part, err := mp.NextPart(ctx)
	require.NoError(t, err)

	_, err = part.Bytes(ctx)
	require.Error(t, err)
	assert.True(t, IsIncompleteMultipart(err))
}

func TestMultipart_IgnoredFieldIsDrainedAutomatically(t *testing.T) {
	t.Parallel()

	body := []byte("--B\r\n" +
		"Content-Disposition: form-data; name=\"noise\"\r\n\r\nignored-value\r\n--B\r\n" +
		"Content-Disposition: form-data; name=\"keep\"\r\n\r\nkept\r\n--B--\r\n")

	mp, err := NewMultipart(
		[]byte("B"), NewSliceSource(body),
		WithSelector(SelectorFields(Field{Name: "keep", Kind: FieldKindText, MaxCount: 1})),
	)
	require.NoError(t, err)
	ctx := context.Background()

	part, err := mp.NextPart(ctx)
	require.NoError(t, err)
	assert.Equal(t, "keep", part.FieldName())
	v, err := part.Text(ctx)
	require.NoError(t, err)
	assert.Equal(t, "kept", v)

	_, err = mp.NextPart(ctx)
	assert.Equal(t, io.EOF, err)
}

func TestMultipart_PartAlreadyConsumed(t *testing.T) {
	t.Parallel()

	body := []byte("--X\r\nContent-Disposition: form-data; name=\"a\"\r\n\r\nhello\r\n--X--\r\n")
	mp, err := NewMultipart([]byte("X"), NewSliceSource(body), WithSelector(SelectorAny()))
	require.NoError(t, err)
	ctx := context.Background()

	part, err := mp.NextPart(ctx)
	require.NoError(t, err)

	_, err = part.Text(ctx)
	require.NoError(t, err)

	_, err = part.Text(ctx)
	require.Error(t, err)
	assert.True(t, IsPartAlreadyConsumed(err))
}
