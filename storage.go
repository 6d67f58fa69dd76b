package goathena

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Object identifies one object of the query output.
type S3Object struct {
	Bucket string
	Key    string
}

// URI renders the object back to its s3:// form.
func (o S3Object) URI() string {
	return "s3://" + o.Bucket + "/" + o.Key
}

// parseOutputLocation splits an "s3://bucket/key" URI.
func parseOutputLocation(uri string) (S3Object, error) {
	rest, ok := strings.CutPrefix(uri, "s3://")
	if !ok {
		return S3Object{}, dataError(fmt.Sprintf("unsupported output location: %s", uri))
	}
	bucket, key, found := strings.Cut(rest, "/")
	if !found || bucket == "" || key == "" {
		return S3Object{}, dataError(fmt.Sprintf("unsupported output location: %s", uri))
	}
	return S3Object{Bucket: bucket, Key: key}, nil
}

// ObjectContentLength probes the size of an output object without
// downloading it.
func (c *Connection) ObjectContentLength(ctx context.Context, location string) (int64, error) {
	obj, err := parseOutputLocation(location)
	if err != nil {
		return 0, err
	}
	out, err := retryAPICall(ctx, c.cfg.RetryConfig, "HeadObject",
		func(ctx context.Context) (*s3.HeadObjectOutput, error) {
			return c.storage.HeadObject(ctx, &s3.HeadObjectInput{
				Bucket: aws.String(obj.Bucket),
				Key:    aws.String(obj.Key),
			})
		})
	if err != nil {
		logger.WithContext(ctx).Errorf("failed to head output object. err: %v", err)
		return 0, operationalError("failed to head output object", err)
	}
	return aws.ToInt64(out.ContentLength), nil
}

// DownloadOutputObject downloads one output object, such as the raw
// CSV result or an UNLOAD part, into memory.
func (c *Connection) DownloadOutputObject(ctx context.Context, location string) ([]byte, error) {
	obj, err := parseOutputLocation(location)
	if err != nil {
		return nil, err
	}
	downloader := manager.NewDownloader(c.storage)
	buf := manager.NewWriteAtBuffer(nil)
	_, err = downloader.Download(ctx, buf, &s3.GetObjectInput{
		Bucket: aws.String(obj.Bucket),
		Key:    aws.String(obj.Key),
	})
	if err != nil {
		logger.WithContext(ctx).Errorf("failed to download output object. err: %v", err)
		return nil, operationalError("failed to download output object", err)
	}
	return buf.Bytes(), nil
}

// ReadDataManifest returns the output object locations listed in an
// execution's data manifest, one URI per line.
func (c *Connection) ReadDataManifest(ctx context.Context, manifestLocation string) ([]S3Object, error) {
	data, err := c.DownloadOutputObject(ctx, manifestLocation)
	if err != nil {
		return nil, err
	}
	var objects []S3Object
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		obj, err := parseOutputLocation(line)
		if err != nil {
			return nil, err
		}
		objects = append(objects, obj)
	}
	return objects, nil
}
