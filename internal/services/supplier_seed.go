package services

import (
	"github.com/DFBlok/market-link-app/internal/models"
	"github.com/lib/pq"
)

type supplierSeed struct {
	name, category, location, description string
	rating                                 float64
	reviews                                int
	specialties, certifications            []string
	responseTime, established, employees   string
	area, domain                           string
}

var defaultSupplierSeeds = []supplierSeed{
	{
		name:           "SteelCorp Manufacturing",
		category:       "Raw Materials",
		location:       "Johannesburg, GP",
		description:    "Leading supplier of high-grade steel and metal components for manufacturing industries.",
		rating:         4.8,
		reviews:        127,
		specialties:    []string{"Steel Sheets", "Metal Fabrication", "Custom Parts"},
		certifications: []string{"ISO 9001", "SABS Certified"},
		responseTime:   "< 2 hours",
		established:    "2010",
		employees:      "100-500",
		area:           "11",
		domain:         "steelcorp",
	},
	{
		name:           "TechComponents SA",
		category:       "Electronics",
		location:       "Cape Town, WC",
		description:    "Specialized electronic components and circuit boards for industrial applications.",
		rating:         4.9,
		reviews:        89,
		specialties:    []string{"PCB Assembly", "Electronic Components", "Testing Services"},
		certifications: []string{"IPC Certified", "RoHS Compliant"},
		responseTime:   "< 1 hour",
		established:    "2015",
		employees:      "50-100",
		area:           "21",
		domain:         "techcomponents",
	},
	{
		name:           "Precision Tools Ltd",
		category:       "Tools & Equipment",
		location:       "Durban, KZN",
		description:    "Precision manufacturing tools and equipment for various industrial sectors.",
		rating:         4.7,
		reviews:        156,
		specialties:    []string{"CNC Tools", "Precision Instruments", "Calibration Services"},
		certifications: []string{"ISO 17025", "NIST Traceable"},
		responseTime:   "< 3 hours",
		established:    "2008",
		employees:      "50-100",
		area:           "31",
		domain:         "precisiontools",
	},
	{
		name:           "ChemSupply Solutions",
		category:       "Chemicals",
		location:       "Port Elizabeth, EC",
		description:    "Industrial chemicals and specialty compounds for manufacturing processes.",
		rating:         4.6,
		reviews:        94,
		specialties:    []string{"Industrial Chemicals", "Custom Formulations", "Safety Consulting"},
		certifications: []string{"SANS 10234", "Responsible Care"},
		responseTime:   "< 4 hours",
		established:    "2012",
		employees:      "11-50",
		area:           "41",
		domain:         "chemsupply",
	},
	{
		name:           "PackagePro Industries",
		category:       "Packaging",
		location:       "Bloemfontein, FS",
		description:    "Comprehensive packaging solutions for various industries.",
		rating:         4.5,
		reviews:        73,
		specialties:    []string{"Custom Packaging", "Eco-Friendly Materials", "Design Services"},
		certifications: []string{"FSC Certified", "ISO 14001"},
		responseTime:   "< 2 hours",
		established:    "2018",
		employees:      "11-50",
		area:           "51",
		domain:         "packagepro",
	},
}

// DefaultSuppliers returns fresh copies of the built-in directory entries, ids unset.
func DefaultSuppliers() []models.Supplier {
	out := make([]models.Supplier, 0, len(defaultSupplierSeeds))
	for _, s := range defaultSupplierSeeds {
		out = append(out, models.Supplier{
			Name:           s.name,
			Category:       s.category,
			Location:       s.location,
			Description:    s.description,
			Rating:         s.rating,
			ReviewCount:    s.reviews,
			Specialties:    pq.StringArray(append([]string(nil), s.specialties...)),
			Certifications: pq.StringArray(append([]string(nil), s.certifications...)),
			Image:          DefaultSupplierImage,
			Verified:       true,
			ResponseTime:   s.responseTime,
			Established:    s.established,
			Employees:      s.employees,
			Phone:          "+27 " + s.area + " 123 4567",
			Email:          "info@" + s.domain + ".co.za",
			Website:        "www." + s.domain + ".co.za",
		})
	}
	return out
}
