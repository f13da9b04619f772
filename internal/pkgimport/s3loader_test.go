package pkgimport

import (
	"bytes"
	"context"
	"errors"
	"io"
	"io/fs"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeS3 struct {
	objects map[string][]byte
	err     error
	keys    []string
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.keys = append(f.keys, *in.Bucket+"/"+*in.Key)
	if f.err != nil {
		return nil, f.err
	}
	data, ok := f.objects[*in.Key]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func TestS3Loader_Open(t *testing.T) {
	client := &fakeS3{objects: map[string][]byte{"distro/packages/core-1.zip": []byte("zip")}}
	loader := NewS3LoaderWithClient(client, "deploy", "distro/packages")

	rc, err := loader.Open(context.Background(), "core-1.zip")
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)

	assert.Equal(t, "zip", string(data))
	assert.Equal(t, []string{"deploy/distro/packages/core-1.zip"}, client.keys)
}

func TestS3Loader_Key(t *testing.T) {
	assert.Equal(t, "core-1.zip", NewS3LoaderWithClient(nil, "b", "").Key("core-1.zip"))
	assert.Equal(t, "p/core-1.zip", NewS3LoaderWithClient(nil, "b", "p/").Key("core-1.zip"))
}

func TestS3Loader_MissingKeyIsNotExist(t *testing.T) {
	loader := NewS3LoaderWithClient(&fakeS3{}, "deploy", "")

	_, err := loader.Open(context.Background(), "core-1.zip")

	assert.ErrorIs(t, err, fs.ErrNotExist)
	assert.Contains(t, err.Error(), "s3://deploy/core-1.zip")
}

func TestS3Loader_NotFoundIsNotExist(t *testing.T) {
	loader := NewS3LoaderWithClient(&fakeS3{err: &types.NotFound{}}, "deploy", "")

	_, err := loader.Open(context.Background(), "core-1.zip")

	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestS3Loader_OtherErrorsPass(t *testing.T) {
	cause := errors.New("throttled")
	loader := NewS3LoaderWithClient(&fakeS3{err: cause}, "deploy", "")

	_, err := loader.Open(context.Background(), "core-1.zip")

	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, fs.ErrNotExist)
}

func TestS3Loader_ThroughGate(t *testing.T) {
	f := newGateFixture(nil)
	loader := NewS3LoaderWithClient(&fakeS3{}, "deploy", "")

	_, err := f.gate.InstallPackage(context.Background(), "core-1.zip", loader, "core")

	var notFound *ResourceNotFoundError
	assert.ErrorAs(t, err, &notFound)
}

func TestNewS3Loader_RequiresBucket(t *testing.T) {
	_, err := NewS3Loader(context.Background(), S3Config{})
	assert.Error(t, err)
}
