package orders

import (
	"fmt"
	"slices"
	"sort"
	"strings"
	"time"

	"usha_storefront/internal/models"

	"github.com/shopspring/decimal"
)

const (
	StatusAll = "ALL"

	SortByDate   = "date"
	SortByTotal  = "total"
	SortByStatus = "status"

	CurrencyCode = "LKR"
	DateLayout   = "January 2, 2006, 03:04 PM"
)

// Query décrit la vue demandée : recherche, filtre de statut et tri
type Query struct {
	Search string `json:"search"`
	Status string `json:"status"`
	SortBy string `json:"sort"`
	Desc   bool   `json:"desc"`
}

// ParseQuery valide les paramètres de l'URL ; les valeurs vides prennent leur défaut
// (tous statuts, plus récentes d'abord).
func ParseQuery(search, status, sortBy, direction string) (Query, error) {
	q := Query{Search: strings.TrimSpace(search), Status: StatusAll, SortBy: SortByDate, Desc: true}

	if status != "" && !strings.EqualFold(status, StatusAll) {
		s := models.OrderStatus(strings.ToUpper(status))
		if !s.Valid() {
			return Query{}, fmt.Errorf("statut inconnu: %q", status)
		}
		q.Status = string(s)
	}
	switch sortBy {
	case "":
	case SortByDate, SortByTotal, SortByStatus:
		q.SortBy = sortBy
	default:
		return Query{}, fmt.Errorf("tri inconnu: %q", sortBy)
	}
	switch strings.ToLower(direction) {
	case "", "desc":
	case "asc":
		q.Desc = false
	default:
		return Query{}, fmt.Errorf("ordre inconnu: %q", direction)
	}
	return q, nil
}

// Matches : recherche insensible à la casse sur l'id, le nom, l'e-mail et les produits
func Matches(o models.Order, search string) bool {
	term := strings.ToLower(strings.TrimSpace(search))
	if term == "" {
		return true
	}
	fields := []string{o.ID.String(), o.User.FirstName, o.User.LastName, o.User.Email}
	for _, it := range o.OrderItems {
		fields = append(fields, it.Product.Name)
	}
	return slices.ContainsFunc(fields, func(f string) bool {
		return strings.Contains(strings.ToLower(f), term)
	})
}

// Apply filtre puis trie une copie de la liste
func Apply(list []models.Order, q Query) []models.Order {
	out := make([]models.Order, 0, len(list))
	for _, o := range list {
		if q.Status != "" && q.Status != StatusAll && string(o.Status) != q.Status {
			continue
		}
		if !Matches(o, q.Search) {
			continue
		}
		out = append(out, o)
	}
	Sort(out, q.SortBy, q.Desc)
	return out
}

// Sort trie sur place ; à égalité l'ordre d'arrivée est conservé
func Sort(list []models.Order, by string, desc bool) {
	less := func(a, b models.Order) int {
		switch by {
		case SortByTotal:
			return a.TotalAmount.Cmp(b.TotalAmount)
		case SortByStatus:
			return statusRank(a.Status) - statusRank(b.Status)
		default:
			return a.OrderDate.Compare(b.OrderDate)
		}
	}
	sort.SliceStable(list, func(i, j int) bool {
		c := less(list[i], list[j])
		if desc {
			return c > 0
		}
		return c < 0
	})
}

func statusRank(s models.OrderStatus) int {
	if i := slices.Index(models.OrderStatuses, s); i >= 0 {
		return i
	}
	return len(models.OrderStatuses)
}

type Group struct {
	Status models.OrderStatus `json:"status"`
	Orders []models.Order     `json:"orders"`
}

// GroupByStatus regroupe dans l'ordre énuméré des statuts ; les groupes vides sont omis
func GroupByStatus(list []models.Order) []Group {
	groups := make([]Group, 0, len(models.OrderStatuses))
	for _, s := range models.OrderStatuses {
		g := Group{Status: s}
		for _, o := range list {
			if o.Status == s {
				g.Orders = append(g.Orders, o)
			}
		}
		if len(g.Orders) > 0 {
			groups = append(groups, g)
		}
	}
	return groups
}

type Stats struct {
	Total    int                        `json:"total"`
	ByStatus map[models.OrderStatus]int `json:"byStatus"`
	Revenue  decimal.Decimal            `json:"revenue"`
}

// ComputeStats : le chiffre d'affaires exclut les commandes annulées
func ComputeStats(list []models.Order) Stats {
	st := Stats{ByStatus: map[models.OrderStatus]int{}, Revenue: decimal.Zero}
	for _, s := range models.OrderStatuses {
		st.ByStatus[s] = 0
	}
	for _, o := range list {
		st.Total++
		st.ByStatus[o.Status]++
		if o.Status != models.OrderStatusCancelled {
			st.Revenue = st.Revenue.Add(o.TotalAmount)
		}
	}
	return st
}

func FormatCurrency(amount decimal.Decimal) string {
	return CurrencyCode + " " + amount.StringFixed(2)
}

func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// Display est la forme affichable d'une commande
type Display struct {
	models.Order
	FormattedTotal string `json:"formatted_total"`
	FormattedDate  string `json:"formatted_date"`
}

func ToDisplay(list []models.Order) []Display {
	out := make([]Display, len(list))
	for i, o := range list {
		out[i] = Display{Order: o, FormattedTotal: FormatCurrency(o.TotalAmount), FormattedDate: FormatDate(o.OrderDate)}
	}
	return out
}
