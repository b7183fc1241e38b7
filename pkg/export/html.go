package export

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/narourip/narourip/pkg/chapters"
	"github.com/narourip/narourip/pkg/fileutils"
	"github.com/narourip/narourip/pkg/models"
	"github.com/narourip/narourip/pkg/works"
	"github.com/robinjoseph08/golib/logger"
)

type HTMLChaptersOptions struct {
	// NoNumbers leaves the chapter number out of file names, for works whose
	// chapter titles are already numbered.
	NoNumbers bool
}

// group is a volume resolved to its stored chapters.
type group struct {
	title    string
	chapters []*models.Chapter
}

type book struct {
	work   *models.Work
	folder string
	groups []group
}

// load reads a work with its chapters grouped by volume. A work without
// volumes becomes a single untitled group in ordinal order.
func (svc *Service) load(ctx context.Context, workID, dir string) (*book, error) {
	log := logger.FromContext(ctx)

	work, err := svc.works.RetrieveWork(ctx, works.RetrieveWorkOptions{ID: &workID})
	if err != nil {
		return nil, err
	}
	list, err := svc.chapters.ListChapters(ctx, chapters.ListChaptersOptions{WorkID: workID})
	if err != nil {
		return nil, err
	}
	vols, err := svc.volumes.ListVolumes(ctx, workID)
	if err != nil {
		return nil, err
	}

	name := fileutils.SanitizeName(work.Title)
	if strings.TrimSpace(name) == "" {
		name = workID
	}
	b := &book{work: work, folder: filepath.Join(dir, name)}

	if len(vols) == 0 {
		b.groups = []group{{chapters: list}}
		return b, nil
	}

	byCode := make(map[string]*models.Chapter, len(list))
	for _, ch := range list {
		byCode[ch.ChapterCode] = ch
	}
	for _, v := range vols {
		g := group{title: v.Title}
		for _, slug := range v.Slugs() {
			ch, ok := byCode[models.ChapterCode(workID, slug)]
			if !ok {
				log.Warn("volume lists a chapter that is not stored", logger.Data{"work_id": workID, "slug": slug})
				continue
			}
			g.chapters = append(g.chapters, ch)
		}
		b.groups = append(b.groups, g)
	}
	return b, nil
}

func (b *book) baseName() string {
	return filepath.Base(b.folder)
}

// volumeName is the file name prefix shared by everything in group i.
func (b *book) volumeName(i int) string {
	name := b.baseName()
	if len(b.groups) > 1 {
		name += fmt.Sprintf(" - %d", i+1)
	}
	return name + fileutils.NamePart(b.groups[i].title)
}

func (b *book) writeStylesheet() error {
	return fileutils.WriteFile(filepath.Join(b.folder, StylesheetName), []byte(stylesheet))
}

// HTMLVolumes writes one page per volume into a folder named after the work
// and returns the written page paths.
func (svc *Service) HTMLVolumes(ctx context.Context, workID, dir string) ([]string, error) {
	b, err := svc.load(ctx, workID, dir)
	if err != nil {
		return nil, err
	}
	if err := b.writeStylesheet(); err != nil {
		return nil, err
	}

	var paths []string
	for i, g := range b.groups {
		var body strings.Builder
		body.WriteString(header(b.work.Title, g.title, b.work.Summary))
		body.WriteString("\n<div id=\"toc\">\n")
		for _, ch := range g.chapters {
			body.WriteString(tocEntry(ch.Ordinal, ch.Title))
			body.WriteString("\n")
		}
		body.WriteString("</div>\n<hr>\n")
		for _, ch := range g.chapters {
			fmt.Fprintf(&body, "<div id=\"%s\"><h3><a href=\"#%s\">%s</a></h3>%s</div>\n<hr>\n",
				anchor(ch.Ordinal), anchor(ch.Ordinal), escape(ch.Title), chapterContent(ch.Content))
		}

		path := filepath.Join(b.folder, b.volumeName(i)+".html")
		if err := fileutils.WriteFile(path, []byte(page(b.work.Title, body.String()))); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// HTMLChapters writes one page per chapter, linked to its neighbours within
// the same volume, and returns the written page paths.
func (svc *Service) HTMLChapters(ctx context.Context, workID, dir string, opts HTMLChaptersOptions) ([]string, error) {
	b, err := svc.load(ctx, workID, dir)
	if err != nil {
		return nil, err
	}
	if err := b.writeStylesheet(); err != nil {
		return nil, err
	}

	var paths []string
	for i, g := range b.groups {
		names := make([]string, len(g.chapters))
		for j, ch := range g.chapters {
			name := b.volumeName(i)
			if !opts.NoNumbers {
				name += fmt.Sprintf(" - %d", j+1)
			}
			names[j] = name + fileutils.NamePart(ch.Title) + ".html"
		}

		for j, ch := range g.chapters {
			var prevFile, prevTitle, nextFile, nextTitle string
			if j > 0 {
				prevFile, prevTitle = names[j-1], titleOr(g.chapters[j-1].Title, j)
			}
			if j+1 < len(g.chapters) {
				nextFile, nextTitle = names[j+1], titleOr(g.chapters[j+1].Title, j+2)
			}

			var body strings.Builder
			body.WriteString(header(b.work.Title, g.title, b.work.Summary))
			body.WriteString("\n")
			body.WriteString(chapterNav(prevFile, prevTitle, ch.Title, nextFile, nextTitle))
			body.WriteString("\n<hr>\n")
			fmt.Fprintf(&body, "<div id=\"%s\"><h3>%s</h3>%s</div>", anchor(ch.Ordinal), escape(ch.Title), chapterContent(ch.Content))

			path := filepath.Join(b.folder, names[j])
			if err := fileutils.WriteFile(path, []byte(page(b.work.Title, body.String()))); err != nil {
				return paths, err
			}
			paths = append(paths, path)
		}
	}
	return paths, nil
}

func titleOr(title string, n int) string {
	if title == "" {
		return fmt.Sprint(n)
	}
	return title
}
