package storage

import (
    "context"
    "crypto/aes"
    "crypto/cipher"
    "crypto/sha256"
    "fmt"
    "io"

    "github.com/aws/aws-sdk-go-v2/aws"
    awscfg "github.com/aws/aws-sdk-go-v2/config"
    "github.com/aws/aws-sdk-go-v2/feature/s3/manager"
    "github.com/aws/aws-sdk-go-v2/service/s3"
    "github.com/rs/zerolog/log"
    "golang.org/x/crypto/pbkdf2"
)

// gcmMagic prefixes objects encrypted at rest with AES-256-GCM.
// Layout: magic(8) + salt(16) + nonce(12) + ciphertext + auth_tag(16).
const gcmMagic = "GCM3NCR0"

// Client wraps the AWS S3 client with transparent decryption of
// encrypted-at-rest objects.
type Client struct {
    s3       *s3.Client
    uploader *manager.Uploader
}

func NewClient(ctx context.Context) (*Client, error) {
    cfg, err := awscfg.LoadDefaultConfig(ctx)
    if err != nil {
        return nil, fmt.Errorf("failed to load AWS config: %w", err)
    }
    cli := s3.NewFromConfig(cfg)
    return &Client{s3: cli, uploader: manager.NewUploader(cli)}, nil
}

// Download fetches an object and, if it carries the GCM magic prefix,
// decrypts it with the given password. Unencrypted objects pass through.
func (c *Client) Download(ctx context.Context, bucket, key, password string) ([]byte, error) {
    result, err := c.s3.GetObject(ctx, &s3.GetObjectInput{
        Bucket: aws.String(bucket),
        Key:    aws.String(key),
    })
    if err != nil {
        return nil, fmt.Errorf("failed to download s3://%s/%s: %w", bucket, key, err)
    }
    defer result.Body.Close()

    data, err := io.ReadAll(result.Body)
    if err != nil {
        return nil, fmt.Errorf("failed to read S3 object: %w", err)
    }

    if len(data) >= 8 && string(data[:8]) == gcmMagic {
        log.Debug().Str("key", key).Msg("object is GCM encrypted, decrypting")
        plain, err := decryptGCM(data, password)
        if err != nil {
            return nil, fmt.Errorf("failed to decrypt s3://%s/%s: %w", bucket, key, err)
        }
        data = plain
    }

    log.Info().Str("bucket", bucket).Str("key", key).Int("size", len(data)).Msg("downloaded file from S3")
    return data, nil
}

// Upload stores a local stream under bucket/key using the multipart-capable
// transfer manager.
func (c *Client) Upload(ctx context.Context, bucket, key string, body io.Reader) error {
    _, err := c.uploader.Upload(ctx, &s3.PutObjectInput{
        Bucket:      aws.String(bucket),
        Key:         aws.String(key),
        Body:        body,
        ContentType: aws.String("application/pdf"),
    })
    if err != nil {
        return fmt.Errorf("failed to upload s3://%s/%s: %w", bucket, key, err)
    }
    log.Info().Str("bucket", bucket).Str("key", key).Msg("uploaded file to S3")
    return nil
}

func decryptGCM(data []byte, password string) ([]byte, error) {
    if len(data) < 8+16+12+16 {
        return nil, fmt.Errorf("GCM data too short: %d bytes", len(data))
    }

    salt := data[8:24]
    nonce := data[24:36]
    ciphertext := data[36:]

    key := pbkdf2.Key([]byte(password), salt, 100000, 32, sha256.New)

    block, err := aes.NewCipher(key)
    if err != nil {
        return nil, fmt.Errorf("failed to create cipher: %w", err)
    }
    gcm, err := cipher.NewGCM(block)
    if err != nil {
        return nil, fmt.Errorf("failed to create GCM: %w", err)
    }

    plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
    if err != nil {
        return nil, fmt.Errorf("GCM decryption failed: %w", err)
    }
    return plaintext, nil
}
