// Copyright 2025 The A2A Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package search

import "github.com/a2aproject/a2a-orchestrator/internal/utils"

// DemoCatalog returns a small product catalog for running the agents without a search backend.
func DemoCatalog() []Result {
	return []Result{
		{Name: "Lenovo IdeaPad Slim 5 laptop", URL: "https://example.com/p/ideapad-slim-5", Features: "14 inch OLED, Ryzen 7, 16GB RAM, 512GB SSD", Price: utils.Ptr(2899.0), Currency: "PLN"},
		{Name: "Apple MacBook Air 13 M3 laptop", URL: "https://example.com/p/macbook-air-m3", Features: "13.6 inch Liquid Retina, 8GB RAM, 256GB SSD", Price: utils.Ptr(5199.0), Currency: "PLN"},
		{Name: "ASUS TUF Gaming F15 laptop", URL: "https://example.com/p/tuf-f15", Features: "15.6 inch 144Hz, Core i5, RTX 3050, 16GB RAM", Price: utils.Ptr(3499.0), Currency: "PLN"},
		{Name: "Acer Aspire 3 laptop", URL: "https://example.com/p/aspire-3", Features: "15.6 inch Full HD, Core i3, 8GB RAM, 256GB SSD", Price: utils.Ptr(1699.0), Currency: "PLN"},
		{Name: "Dell Latitude 5440 laptop", URL: "https://example.com/p/latitude-5440", Features: "14 inch business laptop, Core i5, 16GB RAM", Price: utils.Ptr(4299.0), Currency: "PLN"},
		{Name: "HP 255 G10 laptop", URL: "https://example.com/p/hp-255-g10", Features: "15.6 inch, Ryzen 5, 8GB RAM, 512GB SSD", Price: utils.Ptr(2199.0), Currency: "PLN"},
		{Name: "Samsung Galaxy S24 phone", URL: "https://example.com/p/galaxy-s24", Features: "6.2 inch AMOLED smartphone, 128GB", Price: utils.Ptr(3599.0), Currency: "PLN"},
		{Name: "Apple iPhone 15 phone", URL: "https://example.com/p/iphone-15", Features: "6.1 inch smartphone, 128GB, USB-C", Price: utils.Ptr(3999.0), Currency: "PLN"},
		{Name: "Sony WH-1000XM5 headphones", URL: "https://example.com/p/wh-1000xm5", Features: "wireless noise cancelling headphones, 30h battery", Price: utils.Ptr(1399.0), Currency: "PLN"},
		{Name: "JBL Tune 520BT headphones", URL: "https://example.com/p/tune-520bt", Features: "wireless on-ear headphones, 57h battery", Price: utils.Ptr(199.0), Currency: "PLN"},
	}
}
