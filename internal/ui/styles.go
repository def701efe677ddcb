package ui

import (
	"fmt"

	"landfilter/internal/dom"
)

const stylesID = "naver-land-filter-styles"

const stylesheet = `<style id="` + stylesID + `">
.naver-land-hidden { display: none !important; }
.naver-land-filter-panel .filter-content { display: none; }
.naver-land-filter-panel .filter-content.expanded { display: block; }
.nlf-floor-filter-option.checked .nlf-checkbox::after { content: "✔"; }
.nlf-filter-status-indicator {
  position: fixed; bottom: 20px; left: 20px; z-index: 9999;
  background: rgba(52, 73, 94, 0.9); color: white;
  padding: 8px 16px; border-radius: 20px; font-size: 12px;
  pointer-events: none; transition: all 0.3s ease;
}
.nlf-filter-status-indicator.nlf-status-hidden { opacity: 0; transform: translateY(10px); }
.naver-land-filter-notification {
  position: fixed; top: 20px; right: 20px; z-index: 10000;
  background: #2c3e50; color: white; padding: 12px 20px;
  border-radius: 6px; font-size: 14px; box-shadow: 0 4px 12px rgba(0,0,0,0.3);
}
</style>`

// InjectStyles adds the filter stylesheet once, into head when the page
// has one and into body otherwise
func InjectStyles(doc dom.Document) error {
	if _, ok, err := doc.Query("#" + stylesID); err != nil {
		return err
	} else if ok {
		return nil
	}

	parent, _, ok := dom.QueryFirst(doc, []string{"head", "body"})
	if !ok {
		return fmt.Errorf("no head or body for styles: %w", dom.ErrNotFound)
	}
	if _, err := doc.Append(parent, stylesheet); err != nil {
		return fmt.Errorf("failed to inject styles: %w", err)
	}
	return nil
}
