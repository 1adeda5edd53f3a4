package inventory

import (
	"fmt"
	"regexp"
	"strconv"
)

// SaleCodePrefix is the letter every generated sale code starts with.
const SaleCodePrefix = "V"

var saleCodePattern = regexp.MustCompile(`^` + SaleCodePrefix + `([0-9]+)$`)

// NextSaleCode derives the next sale code from the existing ones: the
// highest numeric suffix plus one, zero-padded to three digits. When no
// existing code has the expected shape it falls back to the sale count
// plus one.
//
//	{V001, V002, V010} -> V011
//	{}                 -> V001
func NextSaleCode(sales []Sale) string {
	maxSeen, matched := 0, false
	for _, s := range sales {
		m := saleCodePattern.FindStringSubmatch(s.Code)
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		matched = true
		if n > maxSeen {
			maxSeen = n
		}
	}
	if !matched {
		return fmt.Sprintf("%s%03d", SaleCodePrefix, len(sales)+1)
	}
	return fmt.Sprintf("%s%03d", SaleCodePrefix, maxSeen+1)
}
