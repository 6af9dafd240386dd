package exporter

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockS3 struct {
	mock.Mock
	bodies map[string]string
}

func (m *mockS3) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	body, _ := io.ReadAll(in.Body)
	if m.bodies == nil {
		m.bodies = map[string]string{}
	}
	m.bodies[aws.ToString(in.Key)] = string(body)
	args := m.Called(aws.ToString(in.Bucket), aws.ToString(in.Key), aws.ToString(in.ContentType))
	out, _ := args.Get(0).(*s3.PutObjectOutput)
	return out, args.Error(1)
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0644))
	return p
}

func TestS3Publisher_Publish(t *testing.T) {
	client := &mockS3{}
	client.On("PutObject", "ads-bucket", "hub/2025/MASTER.csv", "text/csv; charset=utf-8").
		Return(&s3.PutObjectOutput{ETag: aws.String(`"abc"`)}, nil)

	p := NewS3PublisherWithClient(client, S3Config{Bucket: "ads-bucket", Prefix: "/hub/", Region: "eu-central-1"}, nil)
	src := writeFile(t, "MASTER.csv", "a;b\n")

	res, err := p.Publish(context.Background(), "2025/MASTER.csv", src)
	require.NoError(t, err)
	client.AssertExpectations(t)

	assert.Equal(t, "hub/2025/MASTER.csv", res.Key)
	assert.Equal(t, "abc", res.ETag)
	assert.Equal(t, int64(4), res.Size)
	assert.Equal(t, "https://ads-bucket.s3.eu-central-1.amazonaws.com/hub/2025/MASTER.csv", res.Location)
	assert.Equal(t, "a;b\n", client.bodies["hub/2025/MASTER.csv"])
}

func TestS3Publisher_PublishAllStopsOnError(t *testing.T) {
	client := &mockS3{}
	client.On("PutObject", "b", "one.csv", mock.Anything).Return(&s3.PutObjectOutput{}, nil)
	client.On("PutObject", "b", "two.xlsx", mock.Anything).Return(nil, errors.New("denied"))

	p := NewS3PublisherWithClient(client, S3Config{Bucket: "b", Endpoint: "http://localhost:9000"}, nil)
	files := []string{writeFile(t, "one.csv", "1"), writeFile(t, "two.xlsx", "2"), writeFile(t, "three.csv", "3")}

	res, err := p.PublishAll(context.Background(), files)
	require.Error(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, "http://localhost:9000/b/one.csv", res[0].Location)
	client.AssertNumberOfCalls(t, "PutObject", 2)
}

func TestS3Publisher_MissingFile(t *testing.T) {
	p := NewS3PublisherWithClient(&mockS3{}, S3Config{Bucket: "b"}, nil)
	_, err := p.Publish(context.Background(), "x.csv", filepath.Join(t.TempDir(), "x.csv"))
	assert.Error(t, err)
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "text/csv; charset=utf-8", ContentType("a.CSV"))
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", ContentType("a.xlsx"))
	assert.Equal(t, "application/octet-stream", ContentType("a.unknownext"))
}

func TestNewS3PublisherRequiresBucket(t *testing.T) {
	_, err := NewS3Publisher(context.Background(), S3Config{}, nil)
	assert.Error(t, err)
}
