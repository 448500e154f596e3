package config

// StorageConfig holds configuration for a single storage connection.
type StorageConfig struct {
	Type            string `yaml:"type"`             // "local", "gcs" or "s3".
	BucketName      string `yaml:"bucket_name"`      // Default bucket name for operations.
	CredentialsFile string `yaml:"credentials_file"` // Service account key file for GCS.
	BaseDir         string `yaml:"base_dir"`         // Base directory for local file system operations.

	// Region is the AWS region of the bucket.
	Region string `yaml:"region"`
	// Endpoint overrides the service endpoint (S3-compatible servers, the GCS emulator).
	Endpoint string `yaml:"endpoint"`
	// AccessKeyID and SecretAccessKey select static AWS credentials. Empty uses the default chain.
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	// UsePathStyle addresses S3 buckets by path instead of virtual host.
	UsePathStyle bool `yaml:"use_path_style"`
}
