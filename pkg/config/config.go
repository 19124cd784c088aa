package config

import (
	"errors"
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App         AppConfig         `mapstructure:"app"`
	DB          DBConfig          `mapstructure:"db"`
	Redis       RedisConfig       `mapstructure:"redis"`
	Kafka       KafkaConfig       `mapstructure:"kafka"`
	Chains      []ChainConfig     `mapstructure:"chains"`
	Assets      []AssetConfig     `mapstructure:"assets"`
	Fee         FeeConfig         `mapstructure:"fee"`
	Transaction TransactionConfig `mapstructure:"transaction"`
	Signer      SignerConfig      `mapstructure:"signer"`
	Keyring     KeyringConfig     `mapstructure:"keyring"`
	Worker      WorkerConfig      `mapstructure:"worker"`
}

type AppConfig struct {
	Env      string `mapstructure:"env"`
	HttpPort string `mapstructure:"http_port"`
	GrpcPort string `mapstructure:"grpc_port"`
}

type DBConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
}

// DSN builds the gorm postgres DSN.
func (c DBConfig) DSN() string {
	return "host=" + c.Host + " user=" + c.User + " password=" + c.Password +
		" dbname=" + c.Name + " port=" + c.Port + " sslmode=disable"
}

// URL builds the golang-migrate postgres URL.
func (c DBConfig) URL() string {
	return "postgres://" + c.User + ":" + c.Password + "@" + c.Host + ":" + c.Port + "/" + c.Name + "?sslmode=disable"
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	MQType   string `mapstructure:"mq_type"` // "redis" or "kafka"
}

type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
}

// ChainConfig is one entry of the static chain list.
type ChainConfig struct {
	Slug               string `mapstructure:"slug"`
	Name               string `mapstructure:"name"`
	Ledger             string `mapstructure:"ledger"` // "evm" or "substrate"
	EVMChainID         int64  `mapstructure:"evm_chain_id"`
	NativeSymbol       string `mapstructure:"native_symbol"`
	NativeDecimals     int32  `mapstructure:"native_decimals"`
	ExistentialDeposit string `mapstructure:"existential_deposit"`
	BlockExplorer      string `mapstructure:"block_explorer"`
	RpcUrl             string `mapstructure:"rpc_url"`
	SupportsReaping    bool   `mapstructure:"supports_reaping"`
}

// AssetConfig is one entry of the static asset list.
type AssetConfig struct {
	Slug            string `mapstructure:"slug"`
	OriginChain     string `mapstructure:"origin_chain"`
	Symbol          string `mapstructure:"symbol"`
	Decimals        int32  `mapstructure:"decimals"`
	MinAmount       string `mapstructure:"min_amount"`
	Type            string `mapstructure:"type"`
	ContractAddress string `mapstructure:"contract_address"`
	OnChainID       string `mapstructure:"on_chain_id"`
}

type FeeConfig struct {
	QuoteTTL         time.Duration `mapstructure:"quote_ttl"`
	FetchTimeout     time.Duration `mapstructure:"fetch_timeout"`
	BusyBaseFeeGwei  int64         `mapstructure:"busy_base_fee_gwei"`
	BusyUtilization  float64       `mapstructure:"busy_utilization"`
	ReceiptPollEvery time.Duration `mapstructure:"receipt_poll_every"`
}

type TransactionConfig struct {
	EDAsWarning      bool          `mapstructure:"ed_as_warning"`
	NotifyTopic      string        `mapstructure:"notify_topic"`
	DistributedGuard bool          `mapstructure:"distributed_guard"`
	LockTTL          time.Duration `mapstructure:"lock_ttl"`
}

type SignerConfig struct {
	QRTimeout     time.Duration `mapstructure:"qr_timeout"`
	LedgerTimeout time.Duration `mapstructure:"ledger_timeout"`
}

type KeyringConfig struct {
	KeystoreDir string `mapstructure:"keystore_dir"`
}

type WorkerConfig struct {
	Concurrency int `mapstructure:"concurrency"`
}

var Global Config

func Init() {
	cfg, err := load(viper.GetViper(), "")
	if err != nil {
		log.Fatalf("Fatal error config file: %s \n", err)
	}
	Global = cfg
	log.Printf("Configuration loaded successfully. Env: %s", Global.App.Env)
}

// Load reads a config file (or only defaults and environment when path is
// empty) without touching Global.
func Load(path string) (Config, error) {
	return load(viper.New(), path)
}

func load(v *viper.Viper, path string) (Config, error) {
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, err
		}
		log.Printf("Warning: Config file not found, using defaults and environment variables")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.env", "development")
	v.SetDefault("app.http_port", "8080")
	v.SetDefault("app.grpc_port", "50051")

	v.SetDefault("db.enabled", false)
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", "5432")
	v.SetDefault("db.user", "wallet_user")
	v.SetDefault("db.password", "wallet_password")
	v.SetDefault("db.name", "wallet_db")

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.mq_type", "redis")

	v.SetDefault("kafka.brokers", []string{"localhost:9092"})

	v.SetDefault("fee.quote_ttl", 15*time.Second)
	v.SetDefault("fee.fetch_timeout", 10*time.Second)
	v.SetDefault("fee.busy_base_fee_gwei", 100)
	v.SetDefault("fee.busy_utilization", 0.9)
	v.SetDefault("fee.receipt_poll_every", 3*time.Second)

	v.SetDefault("transaction.ed_as_warning", false)
	v.SetDefault("transaction.notify_topic", "wallet_events_transaction")
	v.SetDefault("transaction.distributed_guard", false)
	v.SetDefault("transaction.lock_ttl", 30*time.Minute)

	v.SetDefault("signer.qr_timeout", 5*time.Minute)
	v.SetDefault("signer.ledger_timeout", 2*time.Minute)

	v.SetDefault("keyring.keystore_dir", "keystore")

	v.SetDefault("worker.concurrency", 5)
}
