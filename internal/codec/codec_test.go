package codec

import (
	"bytes"
	"io"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecoderPool_RoundTrip(t *testing.T) {
	t.Parallel()

	src := bytes.Repeat([]byte("texture data "), 512)
	compressed, err := EncodeZstd(src)
	require.NoError(t, err)
	assert.True(t, IsZstd(compressed))
	assert.False(t, IsZstd(src))

	pool := NewDecoderPool(0)
	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			dec, release, err := pool.Get(bytes.NewReader(compressed))
			if !assert.NoError(t, err) {
				return
			}
			defer release()
			got, err := io.ReadAll(dec)
			assert.NoError(t, err)
			assert.Equal(t, src, got)
		}()
	}
	wg.Wait()

	got, err := pool.DecodeAll(compressed, len(src))
	require.NoError(t, err)
	assert.Equal(t, src, got)
}

func TestDeflate_RoundTrip(t *testing.T) {
	t.Parallel()

	src := bytes.Repeat([]byte("abc"), 1000)
	var buf bytes.Buffer
	w, err := NewDeflateWriter(&buf)
	require.NoError(t, err)
	_, err = w.Write(src)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	r := NewDeflateReader(&buf)
	defer r.Close()
	got, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, src, got)
}
