package collection

import "github.com/kpauljoseph/ankix/pkg/models"

// View is a snapshot of the pager: the group being shown, the pages in it
// and whether the group buttons are enabled. Pages lines up with PageIndices.
type View struct {
	Group       int                    `json:"group"`
	GroupCount  int                    `json:"groupCount"`
	Page        int                    `json:"page"`
	TotalPages  int                    `json:"totalPages"`
	PageIndices []int                  `json:"pageIndices"`
	Current     *models.FlashcardPage  `json:"current,omitempty"`
	Pages       []models.FlashcardPage `json:"pages"`
	HasPrev     bool                   `json:"hasPrev"`
	HasNext     bool                   `json:"hasNext"`
}

func GroupCount(totalPages int) int {
	if totalPages <= 0 {
		return 0
	}
	return (totalPages + PagesPerGroup - 1) / PagesPerGroup
}

func (c *Collection) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.view()
}

// NextGroup moves forward one group, staying put on the last one.
func (c *Collection) NextGroup() View {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.group+1 < GroupCount(len(c.pages)) {
		c.group++
		c.page = c.group * PagesPerGroup
	}
	return c.view()
}

// PrevGroup moves back one group, staying put on the first one.
func (c *Collection) PrevGroup() View {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.group > 0 {
		c.group--
		c.page = c.group * PagesPerGroup
	}
	return c.view()
}

// SelectPage shows one page and its group. Indices outside the collection
// clamp to the first or last page.
func (c *Collection) SelectPage(pageIndex int) View {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.pages) == 0 {
		return c.view()
	}
	c.page = max(0, min(pageIndex, len(c.pages)-1))
	c.group = c.page / PagesPerGroup
	return c.view()
}

func (c *Collection) view() View {
	total := len(c.pages)
	groups := GroupCount(total)

	v := View{
		Group:       c.group,
		GroupCount:  groups,
		Page:        c.page,
		TotalPages:  total,
		PageIndices: []int{},
		Pages:       []models.FlashcardPage{},
		HasPrev:     c.group > 0,
		HasNext:     c.group+1 < groups,
	}

	start := c.group * PagesPerGroup
	end := min(start+PagesPerGroup, total)
	for i := start; i < end; i++ {
		v.PageIndices = append(v.PageIndices, i)
	}
	if start < end {
		v.Pages = models.ClonePages(c.pages[start:end])
	}
	if c.page < total {
		current := models.ClonePages(c.pages[c.page : c.page+1])[0]
		v.Current = &current
	}
	return v
}
