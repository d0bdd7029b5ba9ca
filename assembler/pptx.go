package assembler

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"text/template"
	"time"

	"slidepack/models"
)

// slideWidthEMU is the deck width: 10 inches in English Metric Units.
const slideWidthEMU = 9144000

// deckSlide is one slide of the generated deck.
type deckSlide struct {
	Number int
	Media  string // file name under ppt/media
}

type slideData struct {
	deckSlide
	CX, CY int
}

type deckPart struct {
	name string
	tmpl *template.Template
	data any
}

type deckData struct {
	Title   string
	Created string
	CX, CY  int
	Slides  []deckSlide
}

// writeDeck builds a PresentationML package with one picture slide per image.
// Each picture fills the whole slide; the slide size follows the first image's
// aspect ratio.
func writeDeck(ctx context.Context, w io.Writer, images []models.FetchedImage, title string) error {
	data := deckData{
		Title:   title,
		Created: time.Now().UTC().Format(time.RFC3339),
		CX:      slideWidthEMU,
		CY:      slideHeightEMU(images[0]),
	}
	for i, img := range images {
		data.Slides = append(data.Slides, deckSlide{Number: i + 1, Media: entryName("image", i, img.Format)})
	}

	zw := zip.NewWriter(w)

	parts := []deckPart{
		{"[Content_Types].xml", contentTypesTmpl, data},
		{"_rels/.rels", rootRelsTmpl, data},
		{"docProps/core.xml", coreTmpl, data},
		{"docProps/app.xml", appTmpl, data},
		{"ppt/presentation.xml", presentationTmpl, data},
		{"ppt/_rels/presentation.xml.rels", presentationRelsTmpl, data},
		{"ppt/slideMasters/slideMaster1.xml", masterTmpl, data},
		{"ppt/slideMasters/_rels/slideMaster1.xml.rels", masterRelsTmpl, data},
		{"ppt/slideLayouts/slideLayout1.xml", layoutTmpl, data},
		{"ppt/slideLayouts/_rels/slideLayout1.xml.rels", layoutRelsTmpl, data},
		{"ppt/theme/theme1.xml", themeTmpl, data},
	}
	for _, s := range data.Slides {
		slide := slideData{deckSlide: s, CX: data.CX, CY: data.CY}
		parts = append(parts,
			deckPart{fmt.Sprintf("ppt/slides/slide%d.xml", s.Number), slideTmpl, slide},
			deckPart{fmt.Sprintf("ppt/slides/_rels/slide%d.xml.rels", s.Number), slideRelsTmpl, slide},
		)
	}

	for _, part := range parts {
		if err := ctx.Err(); err != nil {
			return err
		}
		entry, err := zw.Create(part.name)
		if err != nil {
			return err
		}
		if err := part.tmpl.Execute(entry, part.data); err != nil {
			return fmt.Errorf("render %s: %w", part.name, err)
		}
	}

	for i, img := range images {
		if err := ctx.Err(); err != nil {
			return err
		}
		entry, err := zw.CreateHeader(&zip.FileHeader{Name: "ppt/media/" + data.Slides[i].Media, Method: zip.Store})
		if err != nil {
			return err
		}
		if err := copyFile(entry, img.Path); err != nil {
			return err
		}
	}

	return zw.Close()
}

func slideHeightEMU(img models.FetchedImage) int {
	if img.Width <= 0 || img.Height <= 0 {
		return slideWidthEMU * 9 / 16
	}
	return int(int64(slideWidthEMU) * int64(img.Height) / int64(img.Width))
}

func xmlEscape(s string) string {
	var buf bytes.Buffer
	xml.EscapeText(&buf, []byte(s))
	return buf.String()
}

func parse(name, text string) *template.Template {
	return template.Must(template.New(name).Funcs(template.FuncMap{
		"esc": xmlEscape,
		"add": func(a, b int) int { return a + b },
	}).Parse(text))
}

const xmlHeader = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n"

const nsPresentation = `xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main" xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships" xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main"`

const emptyTree = `<p:nvGrpSpPr><p:cNvPr id="1" name=""/><p:cNvGrpSpPr/><p:nvPr/></p:nvGrpSpPr><p:grpSpPr><a:xfrm><a:off x="0" y="0"/><a:ext cx="0" cy="0"/><a:chOff x="0" y="0"/><a:chExt cx="0" cy="0"/></a:xfrm></p:grpSpPr>`

var contentTypesTmpl = parse("content-types", xmlHeader+`<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">`+
	`<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>`+
	`<Default Extension="xml" ContentType="application/xml"/>`+
	`<Default Extension="jpg" ContentType="image/jpeg"/>`+
	`<Default Extension="png" ContentType="image/png"/>`+
	`<Override PartName="/ppt/presentation.xml" ContentType="application/vnd.openxmlformats-officedocument.presentationml.presentation.main+xml"/>`+
	`<Override PartName="/ppt/slideMasters/slideMaster1.xml" ContentType="application/vnd.openxmlformats-officedocument.presentationml.slideMaster+xml"/>`+
	`<Override PartName="/ppt/slideLayouts/slideLayout1.xml" ContentType="application/vnd.openxmlformats-officedocument.presentationml.slideLayout+xml"/>`+
	`<Override PartName="/ppt/theme/theme1.xml" ContentType="application/vnd.openxmlformats-officedocument.theme+xml"/>`+
	`{{range .Slides}}<Override PartName="/ppt/slides/slide{{.Number}}.xml" ContentType="application/vnd.openxmlformats-officedocument.presentationml.slide+xml"/>{{end}}`+
	`<Override PartName="/docProps/core.xml" ContentType="application/vnd.openxmlformats-package.core-properties+xml"/>`+
	`<Override PartName="/docProps/app.xml" ContentType="application/vnd.openxmlformats-officedocument.extended-properties+xml"/>`+
	`</Types>`)

var rootRelsTmpl = parse("root-rels", xmlHeader+`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">`+
	`<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="ppt/presentation.xml"/>`+
	`<Relationship Id="rId2" Type="http://schemas.openxmlformats.org/package/2006/relationships/metadata/core-properties" Target="docProps/core.xml"/>`+
	`<Relationship Id="rId3" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/extended-properties" Target="docProps/app.xml"/>`+
	`</Relationships>`)

var coreTmpl = parse("core", xmlHeader+`<cp:coreProperties xmlns:cp="http://schemas.openxmlformats.org/package/2006/metadata/core-properties" xmlns:dc="http://purl.org/dc/elements/1.1/" xmlns:dcterms="http://purl.org/dc/terms/" xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance">`+
	`<dc:title>{{esc .Title}}</dc:title><dc:creator>slidepack</dc:creator>`+
	`<dcterms:created xsi:type="dcterms:W3CDTF">{{.Created}}</dcterms:created>`+
	`<dcterms:modified xsi:type="dcterms:W3CDTF">{{.Created}}</dcterms:modified>`+
	`</cp:coreProperties>`)

var appTmpl = parse("app", xmlHeader+`<Properties xmlns="http://schemas.openxmlformats.org/officeDocument/2006/extended-properties">`+
	`<Application>slidepack</Application><Slides>{{len .Slides}}</Slides>`+
	`</Properties>`)

var presentationTmpl = parse("presentation", xmlHeader+`<p:presentation `+nsPresentation+` saveSubsetFonts="1">`+
	`<p:sldMasterIdLst><p:sldMasterId id="2147483648" r:id="rId1"/></p:sldMasterIdLst>`+
	`<p:sldIdLst>{{range .Slides}}<p:sldId id="{{add .Number 255}}" r:id="rId{{add .Number 2}}"/>{{end}}</p:sldIdLst>`+
	`<p:sldSz cx="{{.CX}}" cy="{{.CY}}"/><p:notesSz cx="6858000" cy="9144000"/>`+
	`</p:presentation>`)

var presentationRelsTmpl = parse("presentation-rels", xmlHeader+`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">`+
	`<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/slideMaster" Target="slideMasters/slideMaster1.xml"/>`+
	`<Relationship Id="rId2" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/theme" Target="theme/theme1.xml"/>`+
	`{{range .Slides}}<Relationship Id="rId{{add .Number 2}}" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/slide" Target="slides/slide{{.Number}}.xml"/>{{end}}`+
	`</Relationships>`)

var masterTmpl = parse("master", xmlHeader+`<p:sldMaster `+nsPresentation+`>`+
	`<p:cSld><p:bg><p:bgRef idx="1001"><a:schemeClr val="bg1"/></p:bgRef></p:bg><p:spTree>`+emptyTree+`</p:spTree></p:cSld>`+
	`<p:clrMap bg1="lt1" tx1="dk1" bg2="lt2" tx2="dk2" accent1="accent1" accent2="accent2" accent3="accent3" accent4="accent4" accent5="accent5" accent6="accent6" hlink="hlink" folHlink="folHlink"/>`+
	`<p:sldLayoutIdLst><p:sldLayoutId id="2147483649" r:id="rId1"/></p:sldLayoutIdLst>`+
	`</p:sldMaster>`)

var masterRelsTmpl = parse("master-rels", xmlHeader+`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">`+
	`<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/slideLayout" Target="../slideLayouts/slideLayout1.xml"/>`+
	`<Relationship Id="rId2" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/theme" Target="../theme/theme1.xml"/>`+
	`</Relationships>`)

var layoutTmpl = parse("layout", xmlHeader+`<p:sldLayout `+nsPresentation+` type="blank" preserve="1">`+
	`<p:cSld name="Blank"><p:spTree>`+emptyTree+`</p:spTree></p:cSld>`+
	`<p:clrMapOvr><a:masterClrMapping/></p:clrMapOvr>`+
	`</p:sldLayout>`)

var layoutRelsTmpl = parse("layout-rels", xmlHeader+`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">`+
	`<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/slideMaster" Target="../slideMasters/slideMaster1.xml"/>`+
	`</Relationships>`)

var slideTmpl = parse("slide", xmlHeader+`<p:sld `+nsPresentation+`>`+
	`<p:cSld><p:spTree>`+emptyTree+
	`<p:pic><p:nvPicPr><p:cNvPr id="2" name="Slide {{.Number}}"/><p:cNvPicPr><a:picLocks noChangeAspect="1"/></p:cNvPicPr><p:nvPr/></p:nvPicPr>`+
	`<p:blipFill><a:blip r:embed="rId2"/><a:stretch><a:fillRect/></a:stretch></p:blipFill>`+
	`<p:spPr><a:xfrm><a:off x="0" y="0"/><a:ext cx="{{.CX}}" cy="{{.CY}}"/></a:xfrm><a:prstGeom prst="rect"><a:avLst/></a:prstGeom></p:spPr></p:pic>`+
	`</p:spTree></p:cSld><p:clrMapOvr><a:masterClrMapping/></p:clrMapOvr>`+
	`</p:sld>`)

var slideRelsTmpl = parse("slide-rels", xmlHeader+`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">`+
	`<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/slideLayout" Target="../slideLayouts/slideLayout1.xml"/>`+
	`<Relationship Id="rId2" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/image" Target="../media/{{.Media}}"/>`+
	`</Relationships>`)

var themeTmpl = parse("theme", xmlHeader+`<a:theme xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main" name="Office Theme"><a:themeElements>`+
	`<a:clrScheme name="Office">`+
	`<a:dk1><a:sysClr val="windowText" lastClr="000000"/></a:dk1><a:lt1><a:sysClr val="window" lastClr="FFFFFF"/></a:lt1>`+
	`<a:dk2><a:srgbClr val="44546A"/></a:dk2><a:lt2><a:srgbClr val="E7E6E6"/></a:lt2>`+
	`<a:accent1><a:srgbClr val="4472C4"/></a:accent1><a:accent2><a:srgbClr val="ED7D31"/></a:accent2>`+
	`<a:accent3><a:srgbClr val="A5A5A5"/></a:accent3><a:accent4><a:srgbClr val="FFC000"/></a:accent4>`+
	`<a:accent5><a:srgbClr val="5B9BD5"/></a:accent5><a:accent6><a:srgbClr val="70AD47"/></a:accent6>`+
	`<a:hlink><a:srgbClr val="0563C1"/></a:hlink><a:folHlink><a:srgbClr val="954F72"/></a:folHlink>`+
	`</a:clrScheme>`+
	`<a:fontScheme name="Office">`+
	`<a:majorFont><a:latin typeface="Calibri Light"/><a:ea typeface=""/><a:cs typeface=""/></a:majorFont>`+
	`<a:minorFont><a:latin typeface="Calibri"/><a:ea typeface=""/><a:cs typeface=""/></a:minorFont>`+
	`</a:fontScheme>`+
	`<a:fmtScheme name="Office">`+
	`<a:fillStyleLst><a:solidFill><a:schemeClr val="phClr"/></a:solidFill><a:solidFill><a:schemeClr val="phClr"/></a:solidFill><a:solidFill><a:schemeClr val="phClr"/></a:solidFill></a:fillStyleLst>`+
	`<a:lnStyleLst><a:ln w="6350"><a:solidFill><a:schemeClr val="phClr"/></a:solidFill></a:ln><a:ln w="12700"><a:solidFill><a:schemeClr val="phClr"/></a:solidFill></a:ln><a:ln w="19050"><a:solidFill><a:schemeClr val="phClr"/></a:solidFill></a:ln></a:lnStyleLst>`+
	`<a:effectStyleLst><a:effectStyle><a:effectLst/></a:effectStyle><a:effectStyle><a:effectLst/></a:effectStyle><a:effectStyle><a:effectLst/></a:effectStyle></a:effectStyleLst>`+
	`<a:bgFillStyleLst><a:solidFill><a:schemeClr val="phClr"/></a:solidFill><a:solidFill><a:schemeClr val="phClr"/></a:solidFill><a:solidFill><a:schemeClr val="phClr"/></a:solidFill></a:bgFillStyleLst>`+
	`</a:fmtScheme>`+
	`</a:themeElements></a:theme>`)
