package config

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Storage.LevelIndexPath == "" {
		cfg.Storage.LevelIndexPath = "/usr/local/var/chartdex/data/indices/levels"
	}
	if cfg.Storage.PassIndexPath == "" {
		cfg.Storage.PassIndexPath = "/usr/local/var/chartdex/data/indices/passes"
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "/usr/local/var/chartdex/data/db/tiers.db"
	}
	if cfg.Storage.DataDir == "" {
		cfg.Storage.DataDir = "/usr/local/var/chartdex/data/dumps"
	}
	if cfg.Search.MaxResultWindow == 0 {
		cfg.Search.MaxResultWindow = 10000
	}
	if cfg.Search.ScrollPageSize == 0 {
		cfg.Search.ScrollPageSize = 1000
	}
	if cfg.Search.MaxScrollPages == 0 {
		cfg.Search.MaxScrollPages = 200
	}
	if cfg.Search.DefaultLimit == 0 {
		cfg.Search.DefaultLimit = 30
	}
}
