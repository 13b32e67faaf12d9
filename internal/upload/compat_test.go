package upload

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTranscoderInfo struct {
	compatible bool
	err        error
}

func (f fakeTranscoderInfo) Compatible(path, tsn, mime string) (bool, error) {
	return f.compatible, f.err
}

func TestNeedsConversionTivoFilePlainPS(t *testing.T) {
	src := SourceInfo{IsTivoFile: true, IsTS: false, HaveLiveDecrypt: false}
	assert.True(t, NeedsConversion(src, mimeVideoMPEG))
}

func TestNeedsConversionFalseForNonTivoSource(t *testing.T) {
	src := SourceInfo{IsTivoFile: false}
	assert.False(t, NeedsConversion(src, mimeVideoMPEG))
}

func TestNeedsConversionFalseWhenLiveDecryptAndPS(t *testing.T) {
	src := SourceInfo{IsTivoFile: true, IsTS: false, HaveLiveDecrypt: true}
	assert.False(t, NeedsConversion(src, mimeVideoMPEG))
}

func TestCompatibleRequiresKnownSize(t *testing.T) {
	src := SourceInfo{SizeKnown: false}
	ok, err := Compatible(src, "/x", "tsn", "video/x-tivo-mpeg", fakeTranscoderInfo{compatible: true})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCompatibleDRMWithoutLiveDecryptIsIncompatible(t *testing.T) {
	src := SourceInfo{SizeKnown: true, EncryptedDRM: true, HaveLiveDecrypt: false}
	ok, err := Compatible(src, "/x", "tsn", mimeVideoMPEG, fakeTranscoderInfo{compatible: true})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCompatibleDelegatesToTranscoderInfo(t *testing.T) {
	src := SourceInfo{SizeKnown: true}
	ok, err := Compatible(src, "/x", "tsn", "video/x-tivo-mpeg-ts", fakeTranscoderInfo{compatible: true})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = Compatible(src, "/x", "tsn", "video/x-tivo-mpeg-ts", fakeTranscoderInfo{compatible: false})
	require.NoError(t, err)
	assert.False(t, ok)
}
