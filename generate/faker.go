package generate

import (
	"fmt"

	"github.com/brianvoe/gofakeit/v7"

	"go.jacobcolvin.com/eventsim/schema"
)

// FakeFunc produces one fake value. All randomness must come from the faker
// so seeded runs stay reproducible.
type FakeFunc func(f *gofakeit.Faker, params map[string]any) (any, error)

// RegisterFake installs or replaces a named fake-data generator. The name is
// what follows the "faker." prefix in a schema's generator field.
func (g *Generator) RegisterFake(name string, fn FakeFunc) {
	g.fakes[name] = fn
}

func (g *Generator) fake(name string, params map[string]any) (any, error) {
	fn, ok := g.fakes[name]
	if !ok {
		return nil, fmt.Errorf("%w: unknown faker generator %q", schema.ErrInvalidSchema, name)
	}

	return fn(g.faker, params)
}

//nolint:funlen // Flat registry of one-liners.
func defaultFakes() map[string]FakeFunc {
	fakes := map[string]FakeFunc{
		"name": func(f *gofakeit.Faker, _ map[string]any) (any, error) {
			return f.Name(), nil
		},
		"first_name": func(f *gofakeit.Faker, _ map[string]any) (any, error) {
			return f.FirstName(), nil
		},
		"last_name": func(f *gofakeit.Faker, _ map[string]any) (any, error) {
			return f.LastName(), nil
		},
		"email": func(f *gofakeit.Faker, _ map[string]any) (any, error) {
			return f.Email(), nil
		},
		"user_name": func(f *gofakeit.Faker, _ map[string]any) (any, error) {
			return f.Username(), nil
		},
		"phone_number": func(f *gofakeit.Faker, _ map[string]any) (any, error) {
			return f.Phone(), nil
		},
		"street_address": func(f *gofakeit.Faker, _ map[string]any) (any, error) {
			return f.Street(), nil
		},
		"city": func(f *gofakeit.Faker, _ map[string]any) (any, error) {
			return f.City(), nil
		},
		"state": func(f *gofakeit.Faker, _ map[string]any) (any, error) {
			return f.State(), nil
		},
		"zipcode": func(f *gofakeit.Faker, _ map[string]any) (any, error) {
			return f.Zip(), nil
		},
		"country": func(f *gofakeit.Faker, _ map[string]any) (any, error) {
			return f.Country(), nil
		},
		"company": func(f *gofakeit.Faker, _ map[string]any) (any, error) {
			return f.Company(), nil
		},
		"job": func(f *gofakeit.Faker, _ map[string]any) (any, error) {
			return f.JobTitle(), nil
		},
		"word": func(f *gofakeit.Faker, _ map[string]any) (any, error) {
			return f.Word(), nil
		},
		"sentence": func(f *gofakeit.Faker, params map[string]any) (any, error) {
			return f.Sentence(intParam(params, "words", 6)), nil
		},
		"url": func(f *gofakeit.Faker, _ map[string]any) (any, error) {
			return f.URL(), nil
		},
		"domain_name": func(f *gofakeit.Faker, _ map[string]any) (any, error) {
			return f.DomainName(), nil
		},
		"ipv4": func(f *gofakeit.Faker, _ map[string]any) (any, error) {
			return f.IPv4Address(), nil
		},
		"user_agent": func(f *gofakeit.Faker, _ map[string]any) (any, error) {
			return f.UserAgent(), nil
		},
		"product_category": func(f *gofakeit.Faker, _ map[string]any) (any, error) {
			return f.RandomString(productCategories), nil
		},
	}

	productName := func(f *gofakeit.Faker, _ map[string]any) (any, error) {
		category := f.RandomString(productCategories)
		adjective := f.RandomString(productAdjectives)
		productType := f.RandomString(productTypes[category])

		// Sometimes the category shows up in the name too.
		if f.Float64Range(0, 1) < 0.3 {
			return adjective + " " + category + " " + productType, nil
		}

		return adjective + " " + productType, nil
	}

	fakes["product_name"] = productName
	fakes["ecommerce.product_name"] = productName
	fakes["username"] = fakes["user_name"]

	return fakes
}

var productCategories = []string{
	"Electronics",
	"Clothing",
	"Home & Kitchen",
	"Books",
	"Beauty",
	"Sports",
	"Toys",
	"Automotive",
	"Health",
	"Pet Supplies",
}

var productAdjectives = []string{
	"Premium",
	"Deluxe",
	"Essential",
	"Professional",
	"Ultra",
	"Smart",
	"Portable",
	"Wireless",
	"Digital",
	"Organic",
	"Vintage",
	"Modern",
	"Lightweight",
	"Durable",
	"Advanced",
}

var productTypes = map[string][]string{
	"Electronics": {
		"Headphones", "Smartphone", "Laptop", "Tablet", "Camera",
		"Smartwatch", "Speaker", "TV", "Monitor", "Mouse", "Keyboard",
	},
	"Clothing": {
		"T-Shirt", "Jeans", "Dress", "Jacket", "Sweater", "Socks",
		"Hat", "Scarf", "Gloves", "Shoes", "Sneakers",
	},
	"Home & Kitchen": {
		"Blender", "Coffee Maker", "Toaster", "Microwave", "Sofa",
		"Bed", "Table", "Chair", "Lamp", "Pillow", "Blanket",
	},
	"Books": {
		"Novel", "Cookbook", "Biography", "Textbook", "Guide",
		"History Book", "Dictionary", "Comic Book", "Magazine", "Journal",
	},
	"Beauty": {
		"Lipstick", "Foundation", "Mascara", "Moisturizer", "Shampoo",
		"Conditioner", "Body Wash", "Face Mask", "Perfume",
	},
	"Sports": {
		"Yoga Mat", "Dumbbells", "Tennis Racket", "Basketball", "Football",
		"Baseball Glove", "Bicycle", "Skateboard", "Running Shoes",
	},
	"Toys": {
		"Action Figure", "Doll", "Board Game", "Puzzle", "Plush Toy",
		"Remote Control Car", "Building Blocks", "Art Set",
	},
	"Automotive": {
		"Car Seat", "Windshield Wipers", "Floor Mats", "Car Charger",
		"Jump Starter", "Tool Kit", "Air Freshener",
	},
	"Health": {
		"Vitamins", "Supplements", "First Aid Kit", "Thermometer",
		"Blood Pressure Monitor", "Heating Pad", "Massager",
	},
	"Pet Supplies": {
		"Dog Food", "Cat Litter", "Pet Bed", "Pet Toy", "Pet Carrier",
		"Leash", "Collar", "Pet Shampoo",
	},
}
