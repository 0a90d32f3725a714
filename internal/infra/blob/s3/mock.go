package s3

import (
	"bytes"
	"context"
	"crypto/md5" // #nosec G501 -- S3 ETags are MD5 digests
	"encoding/hex"
	"encoding/xml"
	"errors"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	aws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

const (
	mockBucket   = "pdm-archive"
	mockEndpoint = "https://s3.mock.local"
	metaHeader   = "X-Amz-Meta-"
)

// NewMockForTests returns a Store whose client talks to an in-process fake
// bucket. The fake answers the HEAD, GET, PUT, DELETE and ListObjectsV2 calls
// the store makes, including user metadata.
func NewMockForTests() *Store {
	bucket := &fakeBucket{objects: map[string]fakeObject{}, now: time.Now}
	cfg, _ := config.LoadDefaultConfig(context.Background(),
		config.WithRegion(defaultRegion),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider("AKIAMOCK", "mock-secret", "")),
	)
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.HTTPClient = &http.Client{Transport: bucket}
		o.UsePathStyle = true
		o.BaseEndpoint = aws.String(mockEndpoint)
	})
	return newStore(client, mockBucket)
}

type fakeObject struct {
	body        []byte
	contentType string
	metadata    http.Header
	modified    time.Time
}

// fakeBucket is an http.RoundTripper over a path-style bucket. PUT always
// replaces; create-only semantics belong to Store.Put.
type fakeBucket struct {
	mu      sync.Mutex
	objects map[string]fakeObject
	now     func() time.Time
}

func (b *fakeBucket) RoundTrip(req *http.Request) (*http.Response, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, key, _ := strings.Cut(strings.TrimPrefix(req.URL.Path, "/"), "/")

	switch {
	case req.Method == http.MethodGet && req.URL.Query().Get("list-type") == "2":
		return b.list(req.URL.Query().Get("prefix"))
	case req.Method == http.MethodPut:
		body, err := io.ReadAll(req.Body)
		if err != nil {
			return nil, err
		}
		if decoded, err := decodeAWSChunked(body); err == nil {
			body = decoded
		}
		meta := http.Header{}
		for name, values := range req.Header {
			if strings.HasPrefix(http.CanonicalHeaderKey(name), metaHeader) {
				meta[http.CanonicalHeaderKey(name)] = values
			}
		}
		b.objects[key] = fakeObject{body: body, contentType: req.Header.Get("Content-Type"), metadata: meta, modified: b.now().UTC()}
		return respond(http.StatusOK, nil, http.Header{"Etag": {`"` + etagOf(body) + `"`}}), nil
	case req.Method == http.MethodHead || req.Method == http.MethodGet:
		obj, ok := b.objects[key]
		if !ok {
			return respond(http.StatusNotFound, nil, nil), nil
		}
		header := obj.metadata.Clone()
		header.Set("Content-Length", strconv.Itoa(len(obj.body)))
		header.Set("Content-Type", obj.contentType)
		header.Set("Etag", `"`+etagOf(obj.body)+`"`)
		header.Set("Last-Modified", obj.modified.Format(http.TimeFormat))
		if req.Method == http.MethodHead {
			return respond(http.StatusOK, nil, header), nil
		}
		return respond(http.StatusOK, obj.body, header), nil
	case req.Method == http.MethodDelete:
		delete(b.objects, key)
		return respond(http.StatusNoContent, nil, nil), nil
	}
	return respond(http.StatusNotImplemented, nil, nil), nil
}

type listResult struct {
	XMLName     xml.Name      `xml:"ListBucketResult"`
	Name        string        `xml:"Name"`
	Prefix      string        `xml:"Prefix"`
	KeyCount    int           `xml:"KeyCount"`
	IsTruncated bool          `xml:"IsTruncated"`
	Contents    []listContent `xml:"Contents"`
}

type listContent struct {
	Key          string `xml:"Key"`
	Size         int    `xml:"Size"`
	ETag         string `xml:"ETag"`
	LastModified string `xml:"LastModified"`
}

func (b *fakeBucket) list(prefix string) (*http.Response, error) {
	res := listResult{Name: mockBucket, Prefix: prefix}
	for key, obj := range b.objects {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		res.Contents = append(res.Contents, listContent{
			Key:          key,
			Size:         len(obj.body),
			ETag:         `"` + etagOf(obj.body) + `"`,
			LastModified: obj.modified.Format(time.RFC3339),
		})
	}
	sort.Slice(res.Contents, func(i, j int) bool { return res.Contents[i].Key < res.Contents[j].Key })
	res.KeyCount = len(res.Contents)
	raw, err := xml.Marshal(res)
	if err != nil {
		return nil, err
	}
	return respond(http.StatusOK, append([]byte(xml.Header), raw...), http.Header{"Content-Type": {"application/xml"}}), nil
}

func respond(status int, body []byte, header http.Header) *http.Response {
	if header == nil {
		header = http.Header{}
	}
	return &http.Response{StatusCode: status, Header: header, Body: io.NopCloser(bytes.NewReader(body)), ContentLength: int64(len(body))}
}

// etagOf mirrors S3's ETag for single-part uploads.
func etagOf(body []byte) string {
	sum := md5.Sum(body) // #nosec G401 -- content fingerprint, not a security boundary
	return hex.EncodeToString(sum[:])
}

var errNotChunked = errors.New("not an aws-chunked payload")

// decodeAWSChunked unwraps an aws-chunked body: "<hex>[;ext]\r\n<data>\r\n"
// repeated, ended by a zero-length chunk and optional trailers.
func decodeAWSChunked(raw []byte) ([]byte, error) {
	var out []byte
	for {
		line, rest, ok := bytes.Cut(raw, []byte("\r\n"))
		if !ok {
			return nil, errNotChunked
		}
		sizeHex, _, _ := bytes.Cut(line, []byte(";"))
		size, err := strconv.ParseInt(string(sizeHex), 16, 64)
		if err != nil || size < 0 {
			return nil, errNotChunked
		}
		if size == 0 {
			return out, nil
		}
		if int64(len(rest)) < size+2 || !bytes.HasPrefix(rest[size:], []byte("\r\n")) {
			return nil, errNotChunked
		}
		out = append(out, rest[:size]...)
		raw = rest[size+2:]
	}
}
