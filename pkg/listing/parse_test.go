package listing

import (
	"testing"
	"time"

	"github.com/narourip/narourip/pkg/errcodes"
	"github.com/narourip/narourip/pkg/remote"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const indexPage = `<html><body>
<div id="novel_color">
  <p class="novel_title"> 異世界の話 </p>
  <div class="index_box">
    <dl class="novel_sublist2">
      <dd class="subtitle"><a href="/abc123/1/">プロローグ</a></dd>
      <dt class="long_update">2024/01/01 00:00</dt>
    </dl>
    <div class="chapter_title">第一章</div>
    <dl class="novel_sublist2">
      <dd class="subtitle"><a href="/abc123/2/">出会い</a></dd>
      <dt class="long_update">2024/01/01 00:00<span title="2024/02/03 12:30 改稿">（改稿）</span></dt>
    </dl>
    <dl class="novel_sublist2">
      <dd class="subtitle"><a href="/other99/1/">unrelated</a></dd>
      <dt class="long_update">2024/01/01 00:00</dt>
    </dl>
    <dl class="novel_sublist2">
      <dd class="subtitle"><a href="/abc123/3/">no date</a></dd>
      <dt class="long_update">soon</dt>
    </dl>
    <dl class="novel_sublist2">
      <dd class="subtitle"><a href="/abc123/4/">旅立ち</a></dd>
      <dt class="long_update">2024/01/05 09:00</dt>
    </dl>
    <div class="chapter_title">空の章</div>
    <div class="chapter_title">第二章</div>
    <dl class="novel_sublist2">
      <dd class="subtitle"><a href="/abc123/5/">決戦</a></dd>
      <dt class="long_update">2024/01/06 09:00</dt>
    </dl>
  </div>
</div>
</body></html>`

func TestParse(t *testing.T) {
	t.Parallel()

	l, err := Parse("abc123", "http://ncode.example.com/abc123/", []byte(indexPage))
	require.NoError(t, err)

	assert.Equal(t, "abc123", l.WorkID)
	assert.Equal(t, "異世界の話", l.Title)

	require.Len(t, l.Entries, 4)
	assert.Equal(t, []string{"1", "2", "4", "5"}, []string{l.Entries[0].Slug, l.Entries[1].Slug, l.Entries[2].Slug, l.Entries[3].Slug})
	for i, e := range l.Entries {
		assert.Equal(t, i+1, e.Ordinal)
	}

	first := l.Entries[0]
	assert.Equal(t, "プロローグ", first.Title)
	assert.Equal(t, "http://ncode.example.com/abc123/1/", first.URL)
	assert.Equal(t, "abc123-1", first.Code("abc123"))
	assert.True(t, time.Date(2024, 1, 1, 0, 0, 0, 0, remote.SiteZone).Equal(first.UpdatedAt))

	// The span title carries the revision time and wins over the text.
	assert.True(t, time.Date(2024, 2, 3, 12, 30, 0, 0, remote.SiteZone).Equal(l.Entries[1].UpdatedAt))

	require.Len(t, l.Volumes, 3)
	assert.Equal(t, Volume{Index: 0, Title: "", Slugs: []string{"1"}}, l.Volumes[0])
	assert.Equal(t, Volume{Index: 1, Title: "第一章", Slugs: []string{"2", "4"}}, l.Volumes[1])
	assert.Equal(t, Volume{Index: 2, Title: "第二章", Slugs: []string{"5"}}, l.Volumes[2])
}

func TestParse_NoTitle(t *testing.T) {
	t.Parallel()

	_, err := Parse("abc123", "http://ncode.example.com/abc123/", []byte(`<html><body><p>エラーが発生しました</p></body></html>`))
	require.Error(t, err)
	assert.True(t, errcodes.IsNoCoherentPage(err))
}

func TestParse_NoEntries(t *testing.T) {
	t.Parallel()

	page := `<div id="novel_color"><p class="novel_title">短編</p><div id="novel_honbun">本文</div></div>`
	l, err := Parse("s1111", "http://ncode.example.com/s1111/", []byte(page))
	require.NoError(t, err)
	assert.Equal(t, "短編", l.Title)
	assert.Empty(t, l.Entries)
	assert.Empty(t, l.Volumes)
}

func TestParse_DuplicateSlugKeepsFirst(t *testing.T) {
	t.Parallel()

	page := `<div id="novel_color"><p class="novel_title">t</p><div class="index_box">
<dl><dd class="subtitle"><a href="/w1/1/">a</a></dd><dt class="long_update">2024/01/01 00:00</dt></dl>
<dl><dd class="subtitle"><a href="/w1/1/">again</a></dd><dt class="long_update">2024/01/02 00:00</dt></dl>
</div></div>`
	l, err := Parse("w1", "http://x/w1/", []byte(page))
	require.NoError(t, err)
	require.Len(t, l.Entries, 1)
	assert.Equal(t, "a", l.Entries[0].Title)
}

func TestSlugOf(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"abc123":                            "abc123",
		"http://ncode.syosetu.com/n1234ab/": "n1234ab",
		"https://ncode.syosetu.com/n1234ab": "n1234ab",
		"/n1234ab/12/":                      "12",
		"  n9999zz/  ":                      "n9999zz",
		"":                                  "",
	}
	for in, want := range tests {
		assert.Equal(t, want, SlugOf(in), in)
	}
}
