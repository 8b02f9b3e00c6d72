package report

// DefaultNames maps account identities to the abbreviations used in reports.
var DefaultNames = Names{
	"AlbertRogerUK":      "ARL",
	"AlbertRogerNetheEU": "ARNL",
	"AlbertRogerFrancEU": "ARF",
	"AlbertRogerIberiEU": "ARIB",
}

// Names maps account identities to display names.
type Names map[string]string

// Display returns the display name for account, or account itself when it
// is not mapped.
func (n Names) Display(account string) string {
	if name, ok := n[account]; ok && name != "" {
		return name
	}
	return account
}
