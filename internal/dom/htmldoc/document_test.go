package htmldoc

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"landfilter/internal/dom"
)

const page = `<html><body>
<div id="listContents1"><div class="item_list">
  <div class="item"><span class="spec">아파트 B1/15층 84㎡</span></div>
  <div class="item"><span class="spec">5/15층</span></div>
</div></div>
</body></html>`

func mustParse(t *testing.T, s string) *Document {
	t.Helper()
	d, err := ParseString(s)
	require.NoError(t, err)
	return d
}

func TestQuery(t *testing.T) {
	d := mustParse(t, page)

	items, err := d.QueryAll(".item_list .item")
	require.NoError(t, err)
	require.Len(t, items, 2)

	text, ok, err := items[0].QueryText(".spec")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "아파트 B1/15층 84㎡", text)

	_, ok, err = d.Query("#missing")
	require.NoError(t, err)
	assert.False(t, ok)

	_, _, err = d.Query("[[[")
	assert.Error(t, err)
}

func TestElementDescendantsOnly(t *testing.T) {
	d := mustParse(t, page)
	item, ok, err := d.Query(".item")
	require.NoError(t, err)
	require.True(t, ok)

	contains, err := item.Contains(".item")
	require.NoError(t, err)
	assert.False(t, contains, "an element does not contain itself")

	matches, err := item.Matches(".item")
	require.NoError(t, err)
	assert.True(t, matches)
}

func TestClassChanges(t *testing.T) {
	d := mustParse(t, page)
	item, _, err := d.Query(".item")
	require.NoError(t, err)

	var records []dom.Record
	list, _, err := d.Query(".item_list")
	require.NoError(t, err)
	_, err = d.Observe(list, dom.ObserveOptions{Attributes: true, Subtree: true}, func(rs []dom.Record) {
		records = append(records, rs...)
	})
	require.NoError(t, err)

	require.NoError(t, item.AddClass("hidden"))
	require.NoError(t, item.AddClass("hidden"))
	has, err := item.HasClass("hidden")
	require.NoError(t, err)
	assert.True(t, has)
	assert.Contains(t, d.String(), `class="item hidden"`)
	assert.Len(t, records, 1, "repeated add is not a change")

	require.NoError(t, item.RemoveClass("hidden"))
	require.NoError(t, item.RemoveClass("hidden"))
	has, err = item.HasClass("hidden")
	require.NoError(t, err)
	assert.False(t, has)
	assert.Len(t, records, 2)

	assert.Error(t, item.AddClass("two words"))
}

func TestAppendHTMLDeliversOneBatch(t *testing.T) {
	d := mustParse(t, page)
	list, _, err := d.Query(".item_list")
	require.NoError(t, err)
	container, _, err := d.Query("#listContents1")
	require.NoError(t, err)

	var batches [][]dom.Record
	sub, err := d.Observe(container, dom.ObserveOptions{ChildList: true, Subtree: true}, func(rs []dom.Record) {
		batches = append(batches, rs)
	})
	require.NoError(t, err)

	added, err := d.AppendHTML(list, `<div class="item"><span class="spec">1/3층</span></div><div class="item"><span class="spec">지하1층</span></div>`)
	require.NoError(t, err)
	require.Len(t, added, 2)
	require.Len(t, batches, 1)
	assert.Equal(t, dom.ChildList, batches[0][0].Type)
	assert.Len(t, batches[0][0].Added, 2)

	items, err := d.QueryAll(".item_list .item")
	require.NoError(t, err)
	assert.Len(t, items, 4)

	require.NoError(t, sub.Disconnect())
	require.NoError(t, sub.Disconnect())
	_, err = d.AppendHTML(list, `<div class="item"></div>`)
	require.NoError(t, err)
	assert.Len(t, batches, 1, "no delivery after disconnect")
}

func TestObserveWithoutSubtree(t *testing.T) {
	d := mustParse(t, page)
	container, _, err := d.Query("#listContents1")
	require.NoError(t, err)
	list, _, err := d.Query(".item_list")
	require.NoError(t, err)

	calls := 0
	_, err = d.Observe(container, dom.ObserveOptions{ChildList: true}, func([]dom.Record) { calls++ })
	require.NoError(t, err)

	_, err = d.Append(list, `<div class="item"></div>`)
	require.NoError(t, err)
	assert.Zero(t, calls, "grandchild changes need Subtree")

	_, err = d.Append(container, `<p>note</p>`)
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestInsertAfterSetTextRemove(t *testing.T) {
	d := mustParse(t, page)
	anchor, _, err := d.Query("#listContents1")
	require.NoError(t, err)

	panel, err := d.InsertAfter(anchor, `<div class="panel"><span class="label">x</span></div>`)
	require.NoError(t, err)
	assert.True(t, strings.Index(d.String(), `class="panel"`) > strings.Index(d.String(), `id="listContents1"`))

	label, ok, err := panel.(*Element).Query(".label")
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, label.SetText("필터 적용중"))
	assert.Equal(t, "필터 적용중", panel.(*Element).Text())

	require.NoError(t, panel.Remove())
	require.NoError(t, panel.Remove())
	assert.False(t, panel.(*Element).Connected())
	_, ok, err = d.Query(".panel")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = d.InsertAfter(anchor, "just text")
	assert.ErrorIs(t, err, dom.ErrNotFound)
}

func TestForeignElement(t *testing.T) {
	a := mustParse(t, page)
	b := mustParse(t, page)
	el, _, err := b.Query(".item")
	require.NoError(t, err)

	_, err = a.Append(el, "<p></p>")
	assert.Error(t, err)
}

func TestListenClick(t *testing.T) {
	d := mustParse(t, `<html><body><div id="panel" class="box">
<div class="opt" data-filter-id="hide-basement" data-category="basement"><label>지하층</label></div>
</div><p id="outside"></p></body></html>`)
	body, _, err := d.Query("body")
	require.NoError(t, err)

	var events []dom.Event
	sub, err := d.Listen(body, "click", func(e dom.Event) { events = append(events, e) })
	require.NoError(t, err)

	label, _, err := d.Query(".opt label")
	require.NoError(t, err)
	require.NoError(t, d.Click(label))
	require.Len(t, events, 1)

	ev := events[0]
	assert.Equal(t, "click", ev.Type)
	require.Len(t, ev.Path, 4)
	assert.Equal(t, "label", ev.Path[0].Tag)
	assert.Equal(t, "body", ev.Path[3].Tag)
	opt, ok := ev.Closest(func(n dom.EventNode) bool { return n.HasClass("opt") })
	require.True(t, ok)
	assert.Equal(t, "hide-basement", opt.Data["filter-id"])
	assert.Equal(t, "basement", opt.Data["category"])
	panel, ok := ev.Closest(func(n dom.EventNode) bool { return n.ID == "panel" })
	require.True(t, ok)
	assert.True(t, panel.HasClass("box"))

	require.NoError(t, d.Dispatch(label, "keydown"))
	assert.Len(t, events, 1, "other event types are not delivered")

	outside, _, err := d.Query("#outside")
	require.NoError(t, err)
	_, err = d.Listen(outside, "click", func(dom.Event) { t.Fatal("sibling listener must not fire") })
	require.NoError(t, err)
	require.NoError(t, d.Click(label))
	assert.Len(t, events, 2)

	require.NoError(t, sub.Disconnect())
	require.NoError(t, sub.Disconnect())
	require.NoError(t, d.Click(label))
	assert.Len(t, events, 2)

	require.NoError(t, label.Remove())
	assert.ErrorIs(t, d.Click(label), dom.ErrNotFound)
}

func TestQueryFirst(t *testing.T) {
	d := mustParse(t, page)
	el, loc, ok := dom.QueryFirst(d, []string{"[[[", "#nope", ".item_list", "#listContents1"})
	require.True(t, ok)
	assert.Equal(t, ".item_list", loc)
	assert.Equal(t, "div", el.(*Element).Tag())

	_, _, ok = dom.QueryFirst(d, []string{"#nope"})
	assert.False(t, ok)
}

func TestWaitForElement(t *testing.T) {
	d := mustParse(t, page)

	el, ok := dom.WaitForElement(context.Background(), d, ".item_list", time.Second)
	require.True(t, ok)
	assert.NotNil(t, el)

	_, ok = dom.WaitForElement(context.Background(), d, "#late", 20*time.Millisecond)
	assert.False(t, ok, "times out")

	body, _, err := d.Query("body")
	require.NoError(t, err)
	done := make(chan bool)
	go func() {
		_, found := dom.WaitForElement(context.Background(), d, "#late", 5*time.Second)
		done <- found
	}()
	for {
		_, err := d.Append(body, `<div id="late"></div>`)
		require.NoError(t, err)
		select {
		case found := <-done:
			assert.True(t, found)
			return
		case <-time.After(10 * time.Millisecond):
		}
	}
}
