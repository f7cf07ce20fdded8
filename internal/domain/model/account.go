package model

// Account identifies one billable utility account visible under a session.
// The pair (AccountNumber, UtilityAccountNumber) addresses every resource
// call; Address and IsDefault are carried for presentation.
type Account struct {
	AccountNumber        string `json:"account_number"`
	UtilityAccountNumber string `json:"utility_account_number"`
	Address              string `json:"address"`
	IsDefault            bool   `json:"is_default"`
}

// ContainsAccount reports whether accounts includes the given utility
// account number. Used to revalidate access after a forced re-login.
func ContainsAccount(accounts []Account, utilityAccountNumber string) bool {
	for _, a := range accounts {
		if a.UtilityAccountNumber == utilityAccountNumber {
			return true
		}
	}
	return false
}
