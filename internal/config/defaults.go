package config

const (
	defaultDataDir              = "~/.local/share/vinylscout"
	defaultLogDir               = "~/.local/share/vinylscout/logs"
	defaultAPIBind              = "127.0.0.1:7390"
	defaultCatalogDriver        = "sqlite"
	defaultCatalogMaxConns      = 4
	defaultCatalogWriteBatch    = 200
	defaultDiscogsBaseURL       = "https://api.discogs.com"
	defaultDiscogsUserAgent     = "VinylScout/0.1 +https://github.com/vinylscout"
	defaultDiscogsRPM           = 55
	defaultDiscogsTimeout       = 10
	defaultFetchTimeout         = 5
	defaultFetchRetries         = 2
	defaultFetchBackoffMS       = 1000
	defaultFetchUserAgent       = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"
	defaultAcceptLanguage       = "ko-KR,ko;q=0.9,en-US;q=0.8,en;q=0.7"
	defaultPriceFloor           = 5000
	defaultPriceCeiling         = 1000000
	defaultSimilarityThreshold  = 0.5
	defaultProductDelayMS       = 3000
	defaultSyncIntervalMinutes  = 24 * 60
	defaultSweepIntervalMinutes = 7 * 24 * 60
	defaultSweepBatchSize       = 200
	defaultDeleteBatchSize      = 100
	defaultLinkCheckDelayMS     = 500
	defaultNtfyTimeout          = 10
	defaultLogLevel             = "info"
	defaultAffiliateParam       = "affiliate"
)

var defaultTargetFormats = []string{"Vinyl"}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
			APIBind: defaultAPIBind,
		},
		Catalog: Catalog{
			Driver:     defaultCatalogDriver,
			MaxConns:   defaultCatalogMaxConns,
			WriteBatch: defaultCatalogWriteBatch,
		},
		Discogs: Discogs{
			BaseURL:           defaultDiscogsBaseURL,
			UserAgent:         defaultDiscogsUserAgent,
			RequestsPerMinute: defaultDiscogsRPM,
			TimeoutSeconds:    defaultDiscogsTimeout,
			TargetFormats:     append([]string(nil), defaultTargetFormats...),
		},
		Fetch: Fetch{
			TimeoutSeconds:   defaultFetchTimeout,
			MaxRetries:       defaultFetchRetries,
			BackoffInitialMS: defaultFetchBackoffMS,
			UserAgent:        defaultFetchUserAgent,
			AcceptLanguage:   defaultAcceptLanguage,
		},
		Matching: Matching{
			PriceFloor:          defaultPriceFloor,
			PriceCeiling:        defaultPriceCeiling,
			SimilarityThreshold: defaultSimilarityThreshold,
		},
		Sync: Sync{
			ProductDelayMS:  defaultProductDelayMS,
			IntervalMinutes: defaultSyncIntervalMinutes,
		},
		Cleanup: Cleanup{
			IntervalMinutes:  defaultSweepIntervalMinutes,
			BatchSize:        defaultSweepBatchSize,
			DeleteBatchSize:  defaultDeleteBatchSize,
			LinkCheckDelayMS: defaultLinkCheckDelayMS,
		},
		Vendors: defaultVendors(),
		Notifications: Notifications{
			RequestTimeout: defaultNtfyTimeout,
			SyncCompleted:  true,
			SyncAborted:    true,
			Sweep:          true,
			Errors:         true,
		},
		Logging: Logging{
			Format: "console",
			Level:  defaultLogLevel,
		},
	}
}

func defaultVendors() Vendors {
	return Vendors{
		Naver: Vendor{
			Enabled:        true,
			BaseURL:        "https://openapi.naver.com/v1/search/shop.json",
			ShippingFee:    3000,
			ShippingPolicy: "판매처별 배송비 상이",
		},
		Aladin: Vendor{
			Enabled:          true,
			BaseURL:          "https://www.aladin.co.kr/ttb/api/ItemSearch.aspx",
			ShippingFee:      2500,
			FreeShippingOver: 15000,
			ShippingPolicy:   "15,000원 이상 무료배송",
			AffiliateParam:   "partner",
		},
		ElevenSt: Vendor{
			Enabled:        true,
			BaseURL:        "http://openapi.11st.co.kr/openapi/OpenApiService.tmall",
			Encoding:       "euc-kr",
			ShippingFee:    3000,
			ShippingPolicy: "판매자 배송비 정책",
		},
		Yes24: Vendor{
			Enabled:          true,
			BaseURL:          "https://www.yes24.com/Product/Search",
			ShippingFee:      2500,
			FreeShippingOver: 15000,
			ShippingPolicy:   "15,000원 이상 무료배송",
			AffiliateParam:   "PID",
		},
		Kyobo: Vendor{
			Enabled:          true,
			BaseURL:          "https://hottracks.kyobobook.co.kr/ht/search/searchList",
			ShippingFee:      2500,
			FreeShippingOver: 15000,
			ShippingPolicy:   "15,000원 이상 무료배송",
		},
		Hyang: Vendor{
			Enabled:          true,
			BaseURL:          "https://www.hyangmusic.com/Search.php",
			Encoding:         "euc-kr",
			ShippingFee:      3000,
			FreeShippingOver: 50000,
			ShippingPolicy:   "50,000원 이상 무료배송",
		},
		Gimbab: Vendor{
			Enabled:        true,
			BaseURL:        "https://gimbabrecords.com/product/search.html",
			ShippingFee:    3500,
			ShippingPolicy: "기본 배송비 3,500원",
		},
		SeoulVinyl: Vendor{
			Enabled:          true,
			BaseURL:          "https://seoulvinyl.com/product/search.html",
			ShippingFee:      3500,
			FreeShippingOver: 100000,
			ShippingPolicy:   "100,000원 이상 무료배송",
		},
		MusicPlant: Vendor{
			Enabled:          true,
			BaseURL:          "https://www.musicplant.co.kr/search",
			ShippingFee:      3000,
			FreeShippingOver: 50000,
			ShippingPolicy:   "50,000원 이상 무료배송",
		},
		Coupang: Vendor{
			Enabled:        true,
			BaseURL:        "https://www.coupang.com/np/search",
			ShippingPolicy: "로켓배송 무료",
			AffiliateParam: "subId",
		},
	}
}
