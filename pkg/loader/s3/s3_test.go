package s3

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/cellannotation/cas/pkg/loader"
)

type fakeGetter struct {
	calls   atomic.Int32
	objects map[string]string
}

func (f *fakeGetter) GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.calls.Add(1)
	body, ok := f.objects[aws.ToString(params.Bucket)+"/"+aws.ToString(params.Key)]
	if !ok {
		return nil, errors.New("NoSuchKey")
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(body))}, nil
}

func TestS3TableFileLoader(t *testing.T) {
	getter := &fakeGetter{objects: map[string]string{"cas/uploads/obs.csv": "cell_id,Class\nc1,Neuron\n"}}
	l := NewS3TableFileLoaderWithClient("cas", getter)
	file := loader.NewTableFile(loader.NewTableFileParams{ID: "t1", FilePath: "uploads/obs.csv", Loader: l})

	for i := 0; i < 3; i++ {
		data, err := file.GetBytes(context.Background())
		if err != nil {
			t.Fatalf("GetBytes: %v", err)
		}
		if !strings.HasPrefix(string(data), "cell_id,Class") {
			t.Fatalf("unexpected content %q", data)
		}
	}
	if n := getter.calls.Load(); n != 1 {
		t.Fatalf("GetObject called %d times, want 1", n)
	}
}

func TestS3TableFileLoaderErrorNotCached(t *testing.T) {
	getter := &fakeGetter{objects: map[string]string{}}
	l := NewS3TableFileLoaderWithClient("cas", getter)
	file := loader.NewTableFile(loader.NewTableFileParams{ID: "t1", FilePath: "missing.csv", Loader: l})

	for i := 0; i < 2; i++ {
		if _, err := file.GetBytes(context.Background()); err == nil {
			t.Fatal("expected error")
		}
	}
	if n := getter.calls.Load(); n != 2 {
		t.Fatalf("GetObject called %d times, want 2", n)
	}
}
