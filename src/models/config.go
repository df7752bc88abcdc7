package models

// MConfig Structure
type MConfig struct {
	Name      string          `yaml:"name" validate:"required"`
	Host      string          `yaml:"host" default:"127.0.0.1" validate:"required"`
	Port      int             `yaml:"port" default:"8765" validate:"gt=1024,lte=65535"`
	LogLevel  string          `yaml:"log_level" default:"INFO" validate:"oneof=DEBUG INFO WARNING ERROR CRITICAL debug info warning error critical"`
	LogFormat string          `yaml:"log_format" default:"console" validate:"oneof=console json"`
	GrpcHost  string          `yaml:"grpc_host" default:"127.0.0.1"`
	GrpcPort  int             `yaml:"grpc_port" default:"50051" validate:"gte=0,lte=65535"`
	Storage   MStorageConfig  `yaml:"storage"`
	Scan      MScanConfig     `yaml:"scan"`
	Quality   MQualityConfig  `yaml:"quality"`
	Patterns  MPatternConfig  `yaml:"patterns"`
	Risk      MRiskConfig     `yaml:"risk"`
	Schedule  MScheduleConfig `yaml:"schedule"`
	Server    MServerConfig   `yaml:"server"`
	Redis     MRedisConfig    `yaml:"redis"`
	Kafka     MKafkaConfig    `yaml:"kafka"`
}

type MStorageConfig struct {
	DBType             string `yaml:"db_type" default:"sqlite" validate:"oneof=sqlite postgres memory"`
	DBPath             string `yaml:"db_path" default:"alpha_radar.db"`
	DBConnectionString string `yaml:"db_connection_string"`
	Schema             string `yaml:"schema"`
}

type MScanConfig struct {
	BatchSize      int  `yaml:"batch_size" default:"500" validate:"gt=0"`
	LookbackDays   int  `yaml:"lookback_days" default:"365" validate:"gt=0"`
	Workers        int  `yaml:"workers" validate:"gte=0"` // 0 = runtime.NumCPU()
	MaxRetries     int  `yaml:"max_retries" default:"3" validate:"gte=1"`
	RetryDelayMs   int  `yaml:"retry_delay_ms" default:"500" validate:"gte=0"`
	PersistPartial bool `yaml:"persist_partial"`
}

type MQualityConfig struct {
	MinBars        int     `yaml:"min_bars" default:"60" validate:"gte=0"`
	MinAvgAmount   float64 `yaml:"min_avg_amount" default:"10000000" validate:"gte=0"`
	UniverseFilter bool    `yaml:"universe_filter"`
}

// MPatternConfig holds the detector tunables.
type MPatternConfig struct {
	ScanLookback    int     `yaml:"scan_lookback" default:"60" validate:"gt=0"`
	RightLegBars    int     `yaml:"right_leg_bars" default:"5" validate:"gte=0"`
	RecentTroughs   int     `yaml:"recent_troughs" default:"5" validate:"gte=2"`
	MinDistance     int     `yaml:"min_distance" default:"8" validate:"gt=0"`
	MaxDistance     int     `yaml:"max_distance" default:"80" validate:"gtfield=MinDistance"`
	HistMinDistance int     `yaml:"hist_min_distance" default:"10" validate:"gt=0"`
	DiffATR         float64 `yaml:"diff_atr" default:"0.5" validate:"gt=0"`
	ScanDepthATR    float64 `yaml:"scan_depth_atr" default:"1.5" validate:"gt=0"`
	HistDepthATR    float64 `yaml:"hist_depth_atr" default:"2.0" validate:"gt=0"`
	BreakoutWindow  int     `yaml:"breakout_window" default:"10" validate:"gt=0"`
	FreshnessBars   int     `yaml:"freshness_bars" default:"5" validate:"gte=0"`

	TriangleWindow  int     `yaml:"triangle_window" default:"40" validate:"gt=0"`
	TriangleVolMult float64 `yaml:"triangle_vol_mult" default:"1.5" validate:"gte=0"`
	VCPMinBars      int     `yaml:"vcp_min_bars" default:"60" validate:"gte=51"`
	VCPVolMult      float64 `yaml:"vcp_vol_mult" default:"2.0" validate:"gte=0"`
	VCPMinGain      float64 `yaml:"vcp_min_gain" default:"0.03"`
	VCPMaxRecentAmp float64 `yaml:"vcp_max_recent_amp" default:"0.05" validate:"gt=0"`
	WyckoffMinBars  int     `yaml:"wyckoff_min_bars" default:"20" validate:"gte=0"`
	PhaseMinBars    int     `yaml:"phase_min_bars" default:"200" validate:"gte=0"`
}

type MRiskConfig struct {
	StopATRMultiplier float64 `yaml:"stop_atr_multiplier" default:"2.0" validate:"gt=0"`
	KellyFraction     float64 `yaml:"kelly_fraction" default:"0.5" validate:"gt=0,lte=1"`
	RiskPerTrade      float64 `yaml:"risk_per_trade" default:"0.02" validate:"gt=0,lt=1"`
}

type MScheduleConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Market      string `yaml:"market" default:"xshg"`
	RunAt       string `yaml:"run_at" default:"15:30" validate:"datetime=15:04"`
	UniverseTag string `yaml:"universe_tag" default:"all"`
}

type MServerConfig struct {
	JWTSecret      string  `yaml:"jwt_secret"`
	RateLimitRPS   float64 `yaml:"rate_limit_rps" default:"5" validate:"gte=0"`
	RateLimitBurst int     `yaml:"rate_limit_burst" default:"10" validate:"gte=0"`
}

type MRedisConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Addr       string `yaml:"addr" default:"localhost:6379"`
	Password   string `yaml:"password"`
	DB         int    `yaml:"db"`
	Prefix     string `yaml:"prefix" default:"alpharadar"`
	TTLSeconds int    `yaml:"ttl_seconds" default:"86400" validate:"gte=0"`
}

type MKafkaConfig struct {
	Enabled bool     `yaml:"enabled"`
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic" default:"alpharadar.signals"`
}
