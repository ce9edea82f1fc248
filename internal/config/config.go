package config

import "github.com/spf13/viper"

type Config struct {
	App struct {
		Env      string
		Timezone string
	} `mapstructure:"app"`

	Telegram struct {
		Token     string
		Operators []int64 `mapstructure:"operators"`
	} `mapstructure:"telegram"`

	WB struct {
		BaseURL string `mapstructure:"base_url"`
		Token   string
	} `mapstructure:"wb"`

	HTTP struct {
		Addr string
	} `mapstructure:"http"`

	Postgres struct {
		DSN string
	} `mapstructure:"postgres"`

	Metrics struct {
		Enabled bool
	} `mapstructure:"metrics"`

	Bot struct {
		SuppliesLimit int `mapstructure:"supplies_limit"`
		PageSize      int `mapstructure:"page_size"`
	} `mapstructure:"bot"`
}

func Load(path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	// Токены удобно переопределять через ENV (APP_*), не трогая YAML
	v.SetEnvPrefix("APP")
	v.AutomaticEnv()

	v.SetDefault("wb.base_url", "https://suppliers-api.wildberries.ru")
	v.SetDefault("bot.supplies_limit", 50)
	v.SetDefault("bot.page_size", 10)

	var c Config
	if err := v.ReadInConfig(); err != nil {
		return c, err
	}
	if err := v.Unmarshal(&c); err != nil {
		return c, err
	}
	return c, nil
}
