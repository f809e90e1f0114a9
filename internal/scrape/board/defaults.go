package board

import (
	"internwatch/internal/domain"
	"internwatch/internal/scrape/extract"
)

func sel(s ...string) extract.Rule { return extract.Rule{Selectors: s} }

func href(s ...string) extract.Rule { return extract.Rule{Selectors: s, Attr: "href"} }

// Defaults returns the built-in specs for the HTML boards in pipeline order.
// Candidate lists run from the most specific markup to the loosest match.
func Defaults() []Spec {
	return []Spec{
		{
			Source: domain.SourceLinkedIn,
			API: &APISpec{
				URL:             "https://www.linkedin.com/jobs-guest/jobs/api/seeMoreJobPostings/search?keywords=data+science+intern+machine+learning+ai+python+software+engineering&location=India&f_TPR=r86400&start=0",
				Items:           "elements",
				Title:           "job.title",
				Company:         "job.companyName",
				Location:        "job.formattedLocation",
				ID:              "job.id",
				LinkTemplate:    "https://www.linkedin.com/jobs/view/{id}",
				DefaultLocation: domain.NotSpecified,
				Limit:           10,
			},
			Homepage: "https://www.linkedin.com/jobs/search?keywords=internship%20data%20science&location=India",
			SearchURLs: []string{
				"https://www.linkedin.com/jobs/search?keywords=data%20science%20intern&location=India&f_TPR=r86400",
			},
			Cards:            []string{"div.base-card", "li.job-result-card"},
			Title:            sel("h3", "a.base-card__full-link"),
			Company:          sel("h4", "span.hidden-nested-link"),
			Location:         sel("span.job-result-card__location", "span.job-search-card__location"),
			Link:             href("a[href]"),
			DefaultLocation:  "India",
			FallbackLocation: "India",
			GenericCompany:   "Tech Company",
			Limit:            8,
		},
		{
			Source:   domain.SourceInternshala,
			Homepage: "https://internshala.com",
			SearchURLs: []string{
				"https://internshala.com/internships/data-science-internship-in-india",
				"https://internshala.com/internships/data-science-internship",
				"https://internshala.com/internships/search?keywords=data%20science",
				"https://internshala.com/internships",
			},
			Cards: []string{
				"div.internship_meta", "div.individual_internship", "article.internship-card",
				"div.job-container", "div.internship-card", "li.internship",
				"div[class*='internship']", "a[href*='internship']",
			},
			Title:            sel("a", "h3", "h4", "span.title", extract.Self),
			Company:          sel("span.company", "div.company", "a.company-name"),
			Location:         sel("span.location", "div.location", "a.location-link"),
			Link:             href("a[href]", extract.Self),
			DefaultLocation:  domain.NotSpecified,
			FallbackLocation: "India",
			GenericCompany:   "Company",
			Limit:            10,
		},
		{
			Source:   domain.SourceWeWorkRemotely,
			Homepage: "https://weworkremotely.com",
			SearchURLs: []string{
				"https://weworkremotely.com/remote-jobs/search?term=intern",
				"https://weworkremotely.com/remote-jobs/search?term=internship",
				"https://weworkremotely.com/remote-jobs/search?term=data%20science%20intern",
				"https://weworkremotely.com/remote-jobs/search?term=python%20intern",
			},
			Cards: []string{
				"li.feature", "article.job", "div.job-listing",
				"div[class*='job']", "li[class*='feature']", "a[title*='Intern']",
			},
			Title:            sel("a.title", "h2", "a", extract.Self),
			Company:          sel("span.company", "div.company", "span.name"),
			Location:         sel("span.location", "div.location"),
			Link:             href("a.title", "a[href]", extract.Self),
			DefaultLocation:  "Remote",
			FallbackLocation: "Remote",
			GenericCompany:   "Remote Company",
			Limit:            10,
		},
		{
			Source:   domain.SourceSimplyHired,
			Homepage: "https://www.simplyhired.co.in",
			SearchURLs: []string{
				"https://www.simplyhired.co.in/internship-jobs/data-science-in-india",
				"https://www.simplyhired.co.in/internship-jobs/data-science",
				"https://www.simplyhired.co.in/job-search?q=data+science+intern",
				"https://www.simplyhired.co.in/jobs?q=internship+data+science",
			},
			Cards: []string{
				"div.jobposting", "article.job", "div.job-listing",
				"div[class*='job']", "li.jobposting", "div.SerpJob", "a[href*='job']",
			},
			Title:            sel("h2", "h3", "a.title", "span.job-title"),
			Company:          sel("span.company", "div.company", "span.jobposting-company"),
			Location:         sel("span.location", "div.location", "span.jobposting-location"),
			Link:             href("a.jobposting-title", "a[href]", extract.Self),
			DefaultLocation:  domain.NotSpecified,
			FallbackLocation: "India",
			GenericCompany:   "Indian Company",
			Limit:            10,
		},
		{
			Source:   domain.SourceNaukri,
			Homepage: "https://www.naukri.com",
			SearchURLs: []string{
				"https://www.naukri.com/data-science-intern-jobs-in-india",
				"https://www.naukri.com/internship-jobs",
				"https://www.naukri.com/job-search?q=data+science+intern",
				"https://www.naukri.com/jobs?q=internship+data+science",
			},
			Cards: []string{
				"div.jobTuple", "article.job", "div.job-listing",
				"div[class*='job']", "li.jobTuple", "div.srp-jobtuple", "a[href*='job']",
			},
			Title:            sel("a.title", "h2", "a", extract.Self),
			Company:          sel("span.company", "div.company", "span.name"),
			Location:         sel("span.location", "div.location"),
			Link:             href("a.title", "a[href]", extract.Self),
			DefaultLocation:  domain.NotSpecified,
			FallbackLocation: "India",
			GenericCompany:   "Indian Company",
			Limit:            10,
		},
	}
}

// Merge overlays non-empty fields of o onto s. Rules and lists replace
// wholesale rather than append.
func Merge(s, o Spec) Spec {
	if o.Homepage != "" {
		s.Homepage = o.Homepage
	}
	if len(o.SearchURLs) > 0 {
		s.SearchURLs = o.SearchURLs
	}
	if len(o.Cards) > 0 {
		s.Cards = o.Cards
	}
	if !o.Title.Empty() {
		s.Title = o.Title
	}
	if !o.Company.Empty() {
		s.Company = o.Company
	}
	if !o.Location.Empty() {
		s.Location = o.Location
	}
	if !o.Link.Empty() {
		s.Link = o.Link
	}
	if o.DefaultLocation != "" {
		s.DefaultLocation = o.DefaultLocation
	}
	if o.FallbackLocation != "" {
		s.FallbackLocation = o.FallbackLocation
	}
	if o.API != nil {
		s.API = o.API
	}
	if o.GenericCompany != "" {
		s.GenericCompany = o.GenericCompany
	}
	if o.CompanyPattern != "" {
		s.CompanyPattern = o.CompanyPattern
	}
	if o.Limit > 0 {
		s.Limit = o.Limit
	}
	return s
}
