package document

// CensusTags is the fixed tag vocabulary counted by a structure census
var CensusTags = []string{
	"div", "span", "p", "a", "img", "table", "tr", "td", "ul", "ol", "li",
	"h1", "h2", "h3", "h4", "h5", "h6",
	"form", "input", "button", "select", "textarea",
	"nav", "header", "footer", "section", "article", "aside",
}
