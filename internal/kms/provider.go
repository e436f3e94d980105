package kms

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awskms "github.com/aws/aws-sdk-go-v2/service/kms"
	vault "github.com/hashicorp/vault/api"
)

// Provider wraps stored key blobs with a key held outside the database.
// Implementations exist for a local master key, AWS KMS and Vault Transit.
type Provider interface {
	Encrypt(ctx context.Context, data []byte) ([]byte, error)
	Decrypt(ctx context.Context, encryptedData []byte) ([]byte, error)

	// Provider returns the provider name ("local", "aws-kms", "vault")
	Provider() string
}

// ProviderType names a supported provider
type ProviderType string

const (
	ProviderNone   ProviderType = ""
	ProviderLocal  ProviderType = "local"
	ProviderAWSKMS ProviderType = "aws-kms"
	ProviderVault  ProviderType = "vault"
)

// Config selects and configures a provider
type Config struct {
	Provider string

	LocalMasterKeyHex string

	AWSKeyID  string
	AWSRegion string

	VaultAddress    string
	VaultToken      string
	VaultTransitKey string
}

// LocalProvider seals data with AES-256-GCM under a master key from configuration
type LocalProvider struct {
	masterKey []byte
}

// NewLocalProvider creates a local provider from a 64 character hex key
func NewLocalProvider(masterKeyHex string) (*LocalProvider, error) {
	if masterKeyHex == "" {
		return nil, fmt.Errorf("master key is required for local KMS provider")
	}

	masterKey, err := hex.DecodeString(masterKeyHex)
	if err != nil {
		return nil, fmt.Errorf("master key must be hex encoded: %w", err)
	}
	if len(masterKey) != 32 {
		return nil, fmt.Errorf("master key must be 32 bytes, got %d", len(masterKey))
	}

	return &LocalProvider{masterKey: masterKey}, nil
}

func (p *LocalProvider) gcm() (cipher.AEAD, error) {
	block, err := aes.NewCipher(p.masterKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return gcm, nil
}

// Encrypt returns nonce‖ciphertext‖tag
func (p *LocalProvider) Encrypt(ctx context.Context, data []byte) ([]byte, error) {
	gcm, err := p.gcm()
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	return gcm.Seal(nonce, nonce, data, nil), nil
}

func (p *LocalProvider) Decrypt(ctx context.Context, encryptedData []byte) ([]byte, error) {
	gcm, err := p.gcm()
	if err != nil {
		return nil, err
	}

	nonceSize := gcm.NonceSize()
	if len(encryptedData) < nonceSize {
		return nil, fmt.Errorf("ciphertext too short")
	}

	nonce, ciphertext := encryptedData[:nonceSize], encryptedData[nonceSize:]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt: %w", err)
	}
	return plaintext, nil
}

func (p *LocalProvider) Provider() string {
	return string(ProviderLocal)
}

// awsKMSAPI is the subset of the AWS KMS client used here
type awsKMSAPI interface {
	Encrypt(ctx context.Context, params *awskms.EncryptInput, optFns ...func(*awskms.Options)) (*awskms.EncryptOutput, error)
	Decrypt(ctx context.Context, params *awskms.DecryptInput, optFns ...func(*awskms.Options)) (*awskms.DecryptOutput, error)
}

// AWSKMSProvider wraps blobs with an AWS KMS symmetric key
type AWSKMSProvider struct {
	keyID  string
	client awsKMSAPI
}

// NewAWSKMSProvider loads AWS credentials from the default chain
// (env vars, shared config, instance role)
func NewAWSKMSProvider(ctx context.Context, keyID, region string) (*AWSKMSProvider, error) {
	if keyID == "" {
		return nil, fmt.Errorf("AWS KMS key ID is required")
	}
	if region == "" {
		return nil, fmt.Errorf("AWS region is required")
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &AWSKMSProvider{keyID: keyID, client: awskms.NewFromConfig(cfg)}, nil
}

func (p *AWSKMSProvider) Encrypt(ctx context.Context, data []byte) ([]byte, error) {
	output, err := p.client.Encrypt(ctx, &awskms.EncryptInput{
		KeyId:     aws.String(p.keyID),
		Plaintext: data,
	})
	if err != nil {
		return nil, fmt.Errorf("AWS KMS encrypt failed: %w", err)
	}
	return output.CiphertextBlob, nil
}

func (p *AWSKMSProvider) Decrypt(ctx context.Context, encryptedData []byte) ([]byte, error) {
	output, err := p.client.Decrypt(ctx, &awskms.DecryptInput{
		KeyId:          aws.String(p.keyID),
		CiphertextBlob: encryptedData,
	})
	if err != nil {
		return nil, fmt.Errorf("AWS KMS decrypt failed: %w", err)
	}
	return output.Plaintext, nil
}

func (p *AWSKMSProvider) Provider() string {
	return string(ProviderAWSKMS)
}

// VaultProvider wraps blobs with a Vault Transit key
type VaultProvider struct {
	transitKey string
	client     *vault.Client
}

func NewVaultProvider(address, token, transitKey string) (*VaultProvider, error) {
	if address == "" {
		return nil, fmt.Errorf("vault address is required")
	}
	if token == "" {
		return nil, fmt.Errorf("vault token is required")
	}
	if transitKey == "" {
		return nil, fmt.Errorf("vault transit key name is required")
	}

	vaultConfig := vault.DefaultConfig()
	vaultConfig.Address = address

	client, err := vault.NewClient(vaultConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create vault client: %w", err)
	}
	client.SetToken(token)

	return &VaultProvider{transitKey: transitKey, client: client}, nil
}

// Encrypt returns the vault:v1:... ciphertext string as bytes
func (p *VaultProvider) Encrypt(ctx context.Context, data []byte) ([]byte, error) {
	path := fmt.Sprintf("transit/encrypt/%s", p.transitKey)
	secret, err := p.client.Logical().WriteWithContext(ctx, path, map[string]interface{}{
		"plaintext": base64.StdEncoding.EncodeToString(data),
	})
	if err != nil {
		return nil, fmt.Errorf("vault transit encrypt failed: %w", err)
	}
	if secret == nil || secret.Data == nil {
		return nil, fmt.Errorf("vault transit encrypt returned empty response")
	}

	ciphertext, ok := secret.Data["ciphertext"].(string)
	if !ok {
		return nil, fmt.Errorf("vault transit encrypt: ciphertext not found in response")
	}
	return []byte(ciphertext), nil
}

func (p *VaultProvider) Decrypt(ctx context.Context, encryptedData []byte) ([]byte, error) {
	path := fmt.Sprintf("transit/decrypt/%s", p.transitKey)
	secret, err := p.client.Logical().WriteWithContext(ctx, path, map[string]interface{}{
		"ciphertext": string(encryptedData),
	})
	if err != nil {
		return nil, fmt.Errorf("vault transit decrypt failed: %w", err)
	}
	if secret == nil || secret.Data == nil {
		return nil, fmt.Errorf("vault transit decrypt returned empty response")
	}

	plaintextB64, ok := secret.Data["plaintext"].(string)
	if !ok {
		return nil, fmt.Errorf("vault transit decrypt: plaintext not found in response")
	}

	plaintext, err := base64.StdEncoding.DecodeString(plaintextB64)
	if err != nil {
		return nil, fmt.Errorf("vault transit decrypt: failed to decode plaintext: %w", err)
	}
	return plaintext, nil
}

func (p *VaultProvider) Provider() string {
	return string(ProviderVault)
}

// NewProvider builds the configured provider. An empty provider name
// returns (nil, nil): blobs are stored without an envelope.
func NewProvider(ctx context.Context, cfg Config) (Provider, error) {
	switch ProviderType(cfg.Provider) {
	case ProviderNone, "none":
		return nil, nil
	case ProviderLocal:
		return NewLocalProvider(cfg.LocalMasterKeyHex)
	case ProviderAWSKMS:
		return NewAWSKMSProvider(ctx, cfg.AWSKeyID, cfg.AWSRegion)
	case ProviderVault:
		return NewVaultProvider(cfg.VaultAddress, cfg.VaultToken, cfg.VaultTransitKey)
	default:
		return nil, fmt.Errorf("unsupported KMS provider: %s (supported: %s, %s, %s)",
			cfg.Provider, ProviderLocal, ProviderAWSKMS, ProviderVault)
	}
}

var (
	_ Provider = (*LocalProvider)(nil)
	_ Provider = (*AWSKMSProvider)(nil)
	_ Provider = (*VaultProvider)(nil)
)
