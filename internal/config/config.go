package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/nacos-group/nacos-sdk-go/v2/clients"
	"github.com/nacos-group/nacos-sdk-go/v2/clients/config_client"
	"github.com/nacos-group/nacos-sdk-go/v2/common/constant"
	"github.com/nacos-group/nacos-sdk-go/v2/vo"
	clientv3 "go.etcd.io/etcd/client/v3"
	"gopkg.in/yaml.v3"
)

// Config 与配置中心中的配置结构对应
// 注意：时间字段统一使用毫秒时间戳

type Config struct {
	Server struct {
		Port     int    `yaml:"port" json:"port"`
		LogLevel string `yaml:"log_level" json:"log_level"`
	} `yaml:"server" json:"server"`

	Database struct {
		DSN                string `yaml:"dsn" json:"dsn"`
		MaxOpenConns       int    `yaml:"max_open_conns" json:"max_open_conns"`
		MaxIdleConns       int    `yaml:"max_idle_conns" json:"max_idle_conns"`
		ConnMaxLifetimeSec int    `yaml:"conn_max_lifetime_sec" json:"conn_max_lifetime_sec"`
	} `yaml:"database" json:"database"`

	Redis struct {
		Addr     string `yaml:"addr" json:"addr"`
		Password string `yaml:"password" json:"password"`
		DB       int    `yaml:"db" json:"db"`
	} `yaml:"redis" json:"redis"`

	RocketMQ struct {
		Endpoint      string `yaml:"endpoint" json:"endpoint"`
		ProducerGroup string `yaml:"producer_group" json:"producer_group"`
		ConsumerGroup string `yaml:"consumer_group" json:"consumer_group"`
		AccessKey     string `yaml:"access_key" json:"access_key"`
		SecretKey     string `yaml:"secret_key" json:"secret_key"`
	} `yaml:"rocketmq" json:"rocketmq"`

	Auth struct {
		JWT struct {
			Secret          string `yaml:"secret" json:"secret"`
			AccessTokenTTL  int    `yaml:"access_token_ttl" json:"access_token_ttl"`   // 秒
			RefreshTokenTTL int    `yaml:"refresh_token_ttl" json:"refresh_token_ttl"` // 秒
			Issuer          string `yaml:"issuer" json:"issuer"`
		} `yaml:"jwt" json:"jwt"`
		Admin struct {
			Enabled bool   `yaml:"enabled" json:"enabled"`
			Token   string `yaml:"token" json:"token"`
		} `yaml:"admin" json:"admin"`
	} `yaml:"auth" json:"auth"`

	RateLimit struct {
		Enabled bool `yaml:"enabled" json:"enabled"`
		ByIP    struct {
			RequestsPerSecond int `yaml:"requests_per_second" json:"requests_per_second"`
			Burst             int `yaml:"burst" json:"burst"`
			WindowSeconds     int `yaml:"window_seconds" json:"window_seconds"`
		} `yaml:"by_ip" json:"by_ip"`
		ByUser struct {
			RequestsPerSecond int `yaml:"requests_per_second" json:"requests_per_second"`
			Burst             int `yaml:"burst" json:"burst"`
			WindowSeconds     int `yaml:"window_seconds" json:"window_seconds"`
		} `yaml:"by_user" json:"by_user"`
	} `yaml:"rate_limit" json:"rate_limit"`

	CORS struct {
		Enabled          bool     `yaml:"enabled" json:"enabled"`
		AllowedOrigins   []string `yaml:"allowed_origins" json:"allowed_origins"`
		AllowedMethods   []string `yaml:"allowed_methods" json:"allowed_methods"`
		AllowedHeaders   []string `yaml:"allowed_headers" json:"allowed_headers"`
		ExposedHeaders   []string `yaml:"exposed_headers" json:"exposed_headers"`
		AllowCredentials bool     `yaml:"allow_credentials" json:"allow_credentials"`
		MaxAge           int      `yaml:"max_age" json:"max_age"`
	} `yaml:"cors" json:"cors"`

	// 夺宝业务配置
	Lottery struct {
		FreeDailyLimit  int    `yaml:"free_daily_limit" json:"free_daily_limit"`     // 每日免费参与上限（默认3）
		FreePerCallMax  int    `yaml:"free_per_call_max" json:"free_per_call_max"`   // 单次免费参与上限（默认3）
		SweepIntervalSec int   `yaml:"sweep_interval_sec" json:"sweep_interval_sec"` // 扫描卡住期次的周期
		FullStuckSec    int    `yaml:"full_stuck_sec" json:"full_stuck_sec"`         // full 状态超时阈值
		DrawingStuckSec int    `yaml:"drawing_stuck_sec" json:"drawing_stuck_sec"`   // drawing 状态超时阈值
		ReferralHookURL string `yaml:"referral_hook_url" json:"referral_hook_url"`   // 首次参与奖励回调地址
	} `yaml:"lottery" json:"lottery"`

	// 功能开关与业务阈值
	FeatureFlags map[string]bool  `yaml:"feature_flags" json:"feature_flags"`
	Thresholds   map[string]int64 `yaml:"thresholds" json:"thresholds"`
}

// 功能开关名
const (
	FlagOpenNextRound = "open_next_round" // 开奖结算后自动开下一期
	FlagReferralHook  = "referral_hook"   // 首次参与触发邀请奖励回调
)

// Load 依次尝试 Nacos、etcd、本地文件，任一成功即返回
// 支持以下环境变量：
//   - NACOS_SERVER_ADDR / NACOS_DATA_ID / NACOS_NAMESPACE / NACOS_GROUP（Nacos 配置中心）
//   - ETCD_ENDPOINTS / ETCD_CONFIG_KEY（etcd 兜底）
//   - CONFIG_FILE: 本地配置文件路径（最终兜底，默认：config/dev.json）
func Load(ctx context.Context) (*Config, error) {
	// 1. 优先尝试从 Nacos 加载
	nacosServerAddr := strings.TrimSpace(os.Getenv("NACOS_SERVER_ADDR"))
	if nacosServerAddr != "" {
		cfg, err := loadFromNacos(ctx)
		if err == nil {
			fmt.Printf("[Config] 配置已从 Nacos 加载: server=%s, dataId=%s\n",
				nacosServerAddr, os.Getenv("NACOS_DATA_ID"))
			return cfg, nil
		}
		fmt.Printf("[Config] 从 Nacos 加载配置失败，尝试下一来源: error=%v\n", err)
	}

	// 2. 尝试从 etcd 加载
	if strings.TrimSpace(os.Getenv("ETCD_ENDPOINTS")) != "" {
		cfg, err := loadFromEtcd(ctx)
		if err == nil {
			fmt.Printf("[Config] 配置已从 etcd 加载: key=%s\n", os.Getenv("ETCD_CONFIG_KEY"))
			return cfg, nil
		}
		fmt.Printf("[Config] 从 etcd 加载配置失败，降级使用本地文件: error=%v\n", err)
	}

	// 3. 降级：从本地文件加载
	configFile := os.Getenv("CONFIG_FILE")
	if configFile == "" {
		configFile = "config/dev.json"
	}

	cfg, err := loadFromFile(configFile)
	if err == nil {
		fmt.Printf("[Config] 配置已从本地文件加载: file=%s\n", configFile)
		return cfg, nil
	}

	return nil, fmt.Errorf("failed to load config from nacos/etcd/local file (%s): %w", configFile, err)
}

// getEnvOrDefault 获取环境变量，如果不存在则返回默认值
func getEnvOrDefault(key, defaultValue string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return defaultValue
}

// loadFromFile 从本地 JSON 或 YAML 文件加载配置
func loadFromFile(filePath string) (*Config, error) {
	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found: %s", filePath)
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config

	ext := filepath.Ext(filePath)
	switch ext {
	case ".json":
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse JSON config: %w", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config file format: %s (supported: .json, .yaml, .yml)", ext)
	}

	return &cfg, nil
}

// loadFromEtcd 从 etcd 加载配置（YAML 存储）
func loadFromEtcd(ctx context.Context) (*Config, error) {
	endpoints := strings.Split(os.Getenv("ETCD_ENDPOINTS"), ",")
	for i := range endpoints {
		endpoints[i] = strings.TrimSpace(endpoints[i])
	}
	if len(endpoints) == 0 || endpoints[0] == "" {
		return nil, errors.New("empty ETCD_ENDPOINTS")
	}
	dialTimeout := 5 * time.Second
	if v := os.Getenv("ETCD_DIAL_TIMEOUT_SEC"); strings.TrimSpace(v) != "" {
		if sec, err := time.ParseDuration(v + "s"); err == nil {
			dialTimeout = sec
		}
	}
	cli, err := clientv3.New(clientv3.Config{
		Endpoints:   endpoints,
		DialTimeout: dialTimeout,
		Username:    os.Getenv("ETCD_USERNAME"),
		Password:    os.Getenv("ETCD_PASSWORD"),
	})
	if err != nil {
		return nil, fmt.Errorf("etcd connect failed: %w", err)
	}
	defer cli.Close()

	key := os.Getenv("ETCD_CONFIG_KEY")
	if strings.TrimSpace(key) == "" {
		return nil, errors.New("ETCD_CONFIG_KEY not set")
	}
	ctx2, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	resp, err := cli.Get(ctx2, key)
	if err != nil {
		return nil, fmt.Errorf("etcd get failed: %w", err)
	}
	if len(resp.Kvs) == 0 {
		return nil, fmt.Errorf("etcd key not found: %s", key)
	}
	var cfg Config
	if err := yaml.Unmarshal(resp.Kvs[0].Value, &cfg); err != nil {
		return nil, fmt.Errorf("yaml unmarshal from etcd failed: %w", err)
	}
	return &cfg, nil
}

// loadFromNacos 从 Nacos 配置中心加载配置
// 支持以下环境变量：
//   - NACOS_SERVER_ADDR: Nacos 服务器地址（必填，如 "127.0.0.1:8848"）
//   - NACOS_NAMESPACE: 命名空间 ID（可选，默认为 public）
//   - NACOS_GROUP: 配置分组（可选，默认为 DEFAULT_GROUP）
//   - NACOS_DATA_ID: 配置 Data ID（必填，如 "lottery-server.yaml"）
//   - NACOS_USERNAME / NACOS_PASSWORD: 认证（可选）
//   - NACOS_TIMEOUT_MS: 超时时间（毫秒，可选，默认 5000）
func loadFromNacos(ctx context.Context) (*Config, error) {
	serverAddr := strings.TrimSpace(os.Getenv("NACOS_SERVER_ADDR"))
	if serverAddr == "" {
		return nil, errors.New("NACOS_SERVER_ADDR not set")
	}

	dataID := strings.TrimSpace(os.Getenv("NACOS_DATA_ID"))
	if dataID == "" {
		return nil, errors.New("NACOS_DATA_ID not set")
	}

	namespace := getEnvOrDefault("NACOS_NAMESPACE", "public")
	group := getEnvOrDefault("NACOS_GROUP", "DEFAULT_GROUP")

	username := strings.TrimSpace(os.Getenv("NACOS_USERNAME"))
	password := strings.TrimSpace(os.Getenv("NACOS_PASSWORD"))

	timeoutMS := 5000
	if timeoutStr := strings.TrimSpace(os.Getenv("NACOS_TIMEOUT_MS")); timeoutStr != "" {
		if t, err := strconv.Atoi(timeoutStr); err == nil && t > 0 {
			timeoutMS = t
		}
	}

	// 解析服务器地址（支持多个地址，逗号分隔）
	serverAddrs := strings.Split(serverAddr, ",")
	var serverConfigs []constant.ServerConfig
	for _, addr := range serverAddrs {
		addr = strings.TrimSpace(addr)
		if addr == "" {
			continue
		}
		parts := strings.Split(addr, ":")
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid NACOS_SERVER_ADDR format: %s (expected host:port)", addr)
		}
		host := parts[0]
		port, err := strconv.ParseUint(parts[1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid port in NACOS_SERVER_ADDR: %s", parts[1])
		}
		serverConfigs = append(serverConfigs, constant.ServerConfig{
			IpAddr: host,
			Port:   port,
		})
	}

	if len(serverConfigs) == 0 {
		return nil, errors.New("no valid server address in NACOS_SERVER_ADDR")
	}

	clientConfig := constant.ClientConfig{
		NamespaceId:         namespace,
		TimeoutMs:           uint64(timeoutMS),
		NotLoadCacheAtStart: true,
		LogDir:              "/tmp/nacos/log",
		CacheDir:            "/tmp/nacos/cache",
		LogLevel:            "warn",
	}

	if username != "" && password != "" {
		clientConfig.Username = username
		clientConfig.Password = password
	}

	configClient, err := clients.NewConfigClient(
		vo.NacosClientParam{
			ClientConfig:  &clientConfig,
			ServerConfigs: serverConfigs,
		},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create nacos config client: %w", err)
	}

	content, err := configClient.GetConfig(vo.ConfigParam{
		DataId: dataID,
		Group:  group,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get config from nacos: %w", err)
	}

	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("nacos config is empty: dataId=%s, group=%s", dataID, group)
	}

	// 解析配置内容（支持 JSON 和 YAML）
	var cfg Config

	ext := filepath.Ext(dataID)
	switch ext {
	case ".json":
		if err := json.Unmarshal([]byte(content), &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse JSON config from nacos: %w", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal([]byte(content), &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config from nacos: %w", err)
		}
	default:
		// 默认尝试 YAML，如果失败再尝试 JSON
		if err := yaml.Unmarshal([]byte(content), &cfg); err != nil {
			if err2 := json.Unmarshal([]byte(content), &cfg); err2 != nil {
				return nil, fmt.Errorf("failed to parse config from nacos (tried YAML and JSON): yaml_err=%v, json_err=%v", err, err2)
			}
		}
	}

	return &cfg, nil
}

// nacosConfigClient 全局 Nacos 配置客户端，用于配置监听
var nacosConfigClient config_client.IConfigClient

// FreeDailyLimit 每日免费参与上限（默认3）
func (c *Config) FreeDailyLimit() int {
	if c == nil || c.Lottery.FreeDailyLimit <= 0 {
		return 3
	}
	return c.Lottery.FreeDailyLimit
}

// FreePerCallMax 单次免费参与份数上限（默认3）
func (c *Config) FreePerCallMax() int {
	if c == nil || c.Lottery.FreePerCallMax <= 0 {
		return 3
	}
	return c.Lottery.FreePerCallMax
}
