package awsutil

import (
	"bytes"
	"io"
	"net/url"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/pkg/errors"
	"github.com/spf13/afero"

	"github.com/replab/replab/golib/envutil"
)

// IsS3URI returns true if the path is an s3 uri.
func IsS3URI(path string) bool {
	return strings.HasPrefix(path, "s3://")
}

// ValidateURI checks whether the given uri points to S3.
func ValidateURI(uri string) (*url.URL, error) {
	s3url, err := url.Parse(uri)
	if err != nil {
		return nil, err
	}
	if s3url.Scheme != "s3" {
		return nil, errors.Errorf("%s is not an s3 uri", uri)
	}
	if s3url.Host == "" {
		return nil, errors.Errorf("%s has no bucket", uri)
	}
	return s3url, nil
}

// JoinURI appends path elements to an s3 uri.
func JoinURI(base string, elem ...string) string {
	s3url, err := url.Parse(base)
	if err != nil {
		return base
	}
	parts := append([]string{s3url.Path}, elem...)
	s3url.Path = path.Join(parts...)
	return s3url.String()
}

// NewS3 creates an s3 client for the given region.
func NewS3(region string) (*s3.S3, error) {
	sess, err := session.NewSession()
	if err != nil {
		return nil, err
	}
	return s3.New(sess, aws.NewConfig().WithRegion(region)), nil
}

// S3PutObject writes the contents of r to the object named by uri,
// creating the object in whichever region its bucket lives in.
func S3PutObject(r io.ReadSeeker, uri string) error {
	s3url, err := ValidateURI(uri)
	if err != nil {
		return err
	}

	region, err := bucketRegion(s3url)
	if err != nil {
		return errors.Wrapf(err, "unable to determine region for %s", uri)
	}

	client, err := NewS3(region)
	if err != nil {
		return err
	}

	key := strings.TrimPrefix(s3url.Path, "/")
	_, err = client.PutObject(&s3.PutObjectInput{
		Bucket: aws.String(s3url.Host),
		Key:    aws.String(key),
		Body:   r,
	})
	return err
}

// UploadFile copies a local file to the object named by uri.
func UploadFile(fs afero.Fs, localPath, uri string) error {
	data, err := afero.ReadFile(fs, localPath)
	if err != nil {
		return errors.Wrapf(err, "error reading %s", localPath)
	}
	return S3PutObject(bytes.NewReader(data), uri)
}

func bucketRegion(uri *url.URL) (string, error) {
	probe := envutil.GetenvDefault("AWS_REGION", "us-east-1")

	client, err := NewS3(probe)
	if err != nil {
		return "", err
	}

	out, err := client.GetBucketLocation(&s3.GetBucketLocationInput{
		Bucket: aws.String(uri.Host),
	})
	if err != nil {
		return "", err
	}

	// a nil location constraint means us-east-1
	if out.LocationConstraint == nil {
		return "us-east-1", nil
	}
	return *out.LocationConstraint, nil
}
