package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Load reads the messaging configuration for a service from the environment
// and an optional config file. Environment keys are prefixed with CHOREO_
// (e.g. CHOREO_BROKER_HOST); the file, when given, uses the same keys
// without the prefix.
func Load(serviceName, configFile string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("choreo")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("enabled", true)
	v.SetDefault("pubsub_system", "rabbitmq")
	v.SetDefault("broker_host", "localhost")
	v.SetDefault("broker_port", 5672)
	v.SetDefault("broker_username", "guest")
	v.SetDefault("broker_password", "guest")
	v.SetDefault("heartbeat", DefaultHeartbeat)
	v.SetDefault("poison_topic", "platform.poison")
	v.SetDefault("metrics_port", 9090)

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}
	}

	cfg := &Config{
		Enabled:              v.GetBool("enabled"),
		ServiceName:          serviceName,
		PubSubSystem:         v.GetString("pubsub_system"),
		BrokerHost:           v.GetString("broker_host"),
		BrokerPort:           v.GetInt("broker_port"),
		BrokerUsername:       v.GetString("broker_username"),
		BrokerPassword:       v.GetString("broker_password"),
		Heartbeat:            v.GetDuration("heartbeat"),
		KafkaBrokers:         v.GetStringSlice("kafka_brokers"),
		KafkaConsumerGroup:   v.GetString("kafka_consumer_group"),
		PoisonTopic:          v.GetString("poison_topic"),
		RetryMaxRetries:      v.GetInt("retry_max_retries"),
		RetryInitialInterval: v.GetDuration("retry_initial_interval"),
		RetryMaxInterval:     v.GetDuration("retry_max_interval"),
		DedupCacheSize:       v.GetInt("dedup_cache_size"),
		MetricsEnabled:       v.GetBool("metrics_enabled"),
		MetricsPort:          v.GetInt("metrics_port"),
	}

	if cfg.KafkaConsumerGroup == "" {
		cfg.KafkaConsumerGroup = serviceName
	}
	if cfg.Heartbeat <= 0 {
		cfg.Heartbeat = DefaultHeartbeat
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid messaging config: %w", err)
	}
	return cfg, nil
}
