// Package domain models weather observations from the Estonian Environment
// Agency (ilmateenistus.ee) and the delivery fee rules computed over them.
//
// # Data Source
//
// Observations come from the national observations feed at
// https://www.ilmateenistus.ee/ilma_andmed/xml/observations.php, an XML
// document refreshed a few minutes past every hour:
//
//	<observations timestamp="1705312500">
//	  <station>
//	    <name>Tallinn-Harku</name>
//	    <wmocode>26038</wmocode>
//	    <phenomenon>Light snow shower</phenomenon>
//	    <airtemperature>-2.1</airtemperature>
//	    <windspeed>4.7</windspeed>
//	  </station>
//	  ...
//	</observations>
//
// The root timestamp attribute is the observation time for every station in
// the document; stations carry no time of their own. Elements are frequently
// empty, so the parser substitutes "NaN" for absent text and zero for absent
// numbers rather than rejecting the document. See [ParseFeed].
//
// # Fee Rules
//
// A delivery fee is a base amount (2.00 plus per-city and per-vehicle
// contributions from the catalog) plus a weather surcharge derived from the
// most recent observation at the city's station: cold air and snow, sleet, or
// rain raise the fee for scooters and bikes; strong wind raises it for bikes;
// wind above 20 m/s, glaze, hail, or thunder forbid the vehicle outright.
// Cars pay the base fee regardless of weather. See [Calculator].
//
// Phenomenon matching is case-insensitive and substring-based on purpose:
// the feed varies strings like "Light shower" and "Heavy snowfall".
//
// # Observation Windows
//
// Ingestion nominally lands a batch every HH:15, so a fee request carrying a
// reference instant is answered from the newest observation in the one-hour
// window [previous HH:15, next HH:15) covering that instant, binding fees to
// the ingestion cycle rather than to wall-clock proximity. See
// [ObservationWindow].
package domain
