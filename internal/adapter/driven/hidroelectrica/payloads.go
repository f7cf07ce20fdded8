package hidroelectrica

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/cnecrea/hidropanel/internal/domain/model"
)

// localizedAmount decodes a monetary value the backend sends either as a JSON
// number or as a localized string ("1.580,10"). Empty strings decode to zero.
type localizedAmount float64

func (a *localizedAmount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*a = 0
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if s == "" {
			*a = 0
			return nil
		}
		v, err := model.ParseLocalizedAmount(s)
		if err != nil {
			return err
		}
		*a = localizedAmount(v)
		return nil
	}
	v, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return fmt.Errorf("parse amount %s: %w", data, err)
	}
	*a = localizedAmount(v)
	return nil
}

// flexBool decodes the backend's inconsistent boolean encodings: true/false,
// 0/1, or the strings "0"/"1"/"true"/"false".
type flexBool bool

func (b *flexBool) UnmarshalJSON(data []byte) error {
	switch string(bytes.TrimSpace(data)) {
	case "true", `"true"`, "1", `"1"`:
		*b = true
	case "false", `"false"`, "0", `"0"`, "null", `""`:
		*b = false
	default:
		return fmt.Errorf("unexpected boolean value %s", data)
	}
	return nil
}

// statusProbe captures the in-body expiry marker present on any endpoint.
type statusProbe struct {
	StatusCode json.Number `json:"status_code"`
}

// --- Login handshake ---

type getIDResponse struct {
	Result struct {
		Data struct {
			Key     string `json:"key"`
			TokenID string `json:"tokenId"`
		} `json:"Data"`
	} `json:"result"`
}

// validateLoginPayload mirrors the mobile app's login request byte for byte;
// the backend rejects bodies missing the device metadata.
type validateLoginPayload struct {
	DeviceType      string `json:"deviceType"`
	OperatingSystem string `json:"OperatingSystem"`
	UpdatedDate     string `json:"UpdatedDate"`
	DeviceID        string `json:"Deviceid"`
	SessionCode     string `json:"SessionCode"`
	LanguageCode    string `json:"LanguageCode"`
	Password        string `json:"password"`
	UserID          string `json:"UserId"`
	TFADeviceID     string `json:"TFADeviceid"`
	OSVersion       int    `json:"OSVersion"`
	TimeOffSet      string `json:"TimeOffSet"`
	LUpdHideShow    string `json:"LUpdHideShow"`
	Browser         string `json:"Browser"`
}

type validateLoginResponse struct {
	Result struct {
		Data struct {
			Table []struct {
				UserID       json.Number `json:"UserID"`
				SessionToken string      `json:"SessionToken"`
			} `json:"Table"`
		} `json:"Data"`
	} `json:"result"`
}

type userSettingPayload struct {
	UserID string `json:"UserID"`
}

// accountRow is one raw account entry from GetUserSetting. Rows appear in
// both Table1 and Table2 and are deduplicated by full-row equality.
type accountRow struct {
	AccountNumber        string   `json:"AccountNumber"`
	UtilityAccountNumber string   `json:"UtilityAccountNumber"`
	Address              string   `json:"Address"`
	IsDefaultAccount     flexBool `json:"IsDefaultAccount"`
}

type userSettingResponse struct {
	Result struct {
		Data struct {
			Table1 []accountRow `json:"Table1"`
			Table2 []accountRow `json:"Table2"`
		} `json:"Data"`
	} `json:"result"`
}

// mergeAccountRows merges Table1 and Table2 preserving order, drops duplicate
// rows and rows without a utility account number, and projects the remainder
// into domain accounts.
func mergeAccountRows(table1, table2 []accountRow) []model.Account {
	merged := make([]accountRow, 0, len(table1)+len(table2))
	merged = append(merged, table1...)
	for _, row := range table2 {
		seen := false
		for _, existing := range merged {
			if row == existing {
				seen = true
				break
			}
		}
		if !seen {
			merged = append(merged, row)
		}
	}

	accounts := make([]model.Account, 0, len(merged))
	for _, row := range merged {
		if row.UtilityAccountNumber == "" {
			continue
		}
		accounts = append(accounts, model.Account{
			AccountNumber:        row.AccountNumber,
			UtilityAccountNumber: row.UtilityAccountNumber,
			Address:              row.Address,
			IsDefault:            bool(row.IsDefaultAccount),
		})
	}
	return accounts
}

// --- Resource calls ---

type billPayload struct {
	LanguageCode         string `json:"LanguageCode"`
	UserID               string `json:"UserID"`
	IsBillPDF            string `json:"IsBillPDF"`
	UtilityAccountNumber string `json:"UtilityAccountNumber"`
	AccountNumber        string `json:"AccountNumber"`
}

type billResponse struct {
	Result struct {
		BillAmount localizedAmount `json:"billamount"`
		RemBalance localizedAmount `json:"rembalance"`
		DueDate    string          `json:"duedate"`
		Facturi    []struct {
			BillNo     string          `json:"billno"`
			RemBalance localizedAmount `json:"rembalance"`
			DueDate    string          `json:"duedate"`
		} `json:"facturi"`
	} `json:"result"`
}

type billHistoryPayload struct {
	LanguageCode         string `json:"LanguageCode"`
	UserID               string `json:"UserID"`
	UtilityAccountNumber string `json:"UtilityAccountNumber"`
	AccountNumber        string `json:"AccountNumber"`
	FromDate             string `json:"FromDate"`
	ToDate               string `json:"ToDate"`
}

type billHistoryResponse struct {
	Result struct {
		Payments []struct {
			PaymentDate string          `json:"paymentDate"`
			Amount      localizedAmount `json:"amount"`
		} `json:"objBillingPaymentHistoryEntity"`
	} `json:"result"`
}

type meterPayload struct {
	MeterType            string `json:"MeterType"`
	UserID               string `json:"UserID"`
	UtilityAccountNumber string `json:"UtilityAccountNumber"`
	AccountNumber        string `json:"AccountNumber"`
}

type meterDetailsResponse struct {
	Result struct {
		Data struct {
			Table []struct {
				MeterNumber string `json:"MeterNumber"`
				MeterType   string `json:"MeterType"`
				MeterStatus string `json:"MeterStatus"`
			} `json:"Table"`
		} `json:"Data"`
	} `json:"result"`
}

type meterReadingResponse struct {
	Result struct {
		Data struct {
			Table []struct {
				MeterNumber  string          `json:"MeterNumber"`
				MeterReading localizedAmount `json:"MeterReading"`
				ReadingDate  string          `json:"ReadingDate"`
			} `json:"Table"`
		} `json:"Data"`
	} `json:"result"`
}

type readingWindowResponse struct {
	Result struct {
		Data struct {
			FromDate string `json:"FromDate"`
			ToDate   string `json:"ToDate"`
		} `json:"Data"`
	} `json:"result"`
}

// usagePayload carries the mobile app's full monthly-usage query. Most fields
// are constants the backend insists on receiving.
type usagePayload struct {
	Date                 string `json:"date"`
	IsCSR                bool   `json:"IsCSR"`
	IsUSD                bool   `json:"IsUSD"`
	Mode                 string `json:"Mode"`
	HourlyType           string `json:"HourlyType"`
	UsageType            string `json:"UsageType"`
	UsageOrGeneration    bool   `json:"UsageOrGeneration"`
	GroupID              int    `json:"GroupId"`
	LanguageCode         string `json:"LanguageCode"`
	Type                 string `json:"Type"`
	MeterNumber          string `json:"MeterNumber"`
	IsEnterpriseUser     bool   `json:"IsEnterpriseUser"`
	SeasonType           int    `json:"SeasonType"`
	DateFromDaily        string `json:"DateFromDaily"`
	IsNetUsage           bool   `json:"IsNetUsage"`
	TimeOffset           string `json:"TimeOffset"`
	UserType             string `json:"UserType"`
	DateToDaily          string `json:"DateToDaily"`
	UtilityID            int    `json:"UtilityId"`
	IsLastTenDays        bool   `json:"IsLastTendays"`
	UserID               string `json:"UserID"`
	UtilityAccountNumber string `json:"UtilityAccountNumber"`
	AccountNumber        string `json:"AccountNumber"`
}

type usageResponse struct {
	Result struct {
		Data struct {
			Entries []struct {
				UsageDate  string          `json:"UsageDate"`
				Year       int             `json:"Year"`
				Usage      localizedAmount `json:"Usage"`
				Generation localizedAmount `json:"Generation"`
			} `json:"objUsageGenerationResultSetTwo"`
		} `json:"Data"`
	} `json:"result"`
}
